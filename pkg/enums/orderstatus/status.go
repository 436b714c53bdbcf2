package orderstatus

import "strings"

// Status is the lifecycle status of an order as the backend spells it.
type Status string

const (
	Pending        Status = "PENDING"
	Confirmed      Status = "CONFIRMED"
	Preparing      Status = "PREPARING"
	Ready          Status = "READY"
	OutForDelivery Status = "OUT_FOR_DELIVERY"
	Delivered      Status = "DELIVERED"
	Cancelled      Status = "CANCELLED"
)

var All = []Status{
	Pending,
	Confirmed,
	Preparing,
	Ready,
	OutForDelivery,
	Delivered,
	Cancelled,
}

var labels = map[Status]string{
	Pending:        "Függőben",
	Confirmed:      "Elfogadva",
	Preparing:      "Elfogadva",
	Ready:          "Elkészült",
	OutForDelivery: "Kiszállítás alatt",
	Delivered:      "Teljesítve",
	Cancelled:      "Törölve",
}

func (s Status) Code() string {
	return string(s)
}

// Label returns the operator facing name. PREPARING shares the CONFIRMED label.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Class is the CSS modifier used by status badges.
func (s Status) Class() string {
	return "status-" + strings.ReplaceAll(strings.ToLower(string(s.Canonical())), "_", "-")
}

// Canonical folds PREPARING into CONFIRMED.
func (s Status) Canonical() Status {
	if s == Preparing {
		return Confirmed
	}
	return s
}

// Rank orders active statuses for display. Terminal and unknown statuses sort last.
func (s Status) Rank() int {
	switch s.Canonical() {
	case Pending:
		return 0
	case Confirmed:
		return 1
	case Ready:
		return 2
	case OutForDelivery:
		return 3
	default:
		return 4
	}
}

func (s Status) Terminal() bool {
	return s == Delivered || s == Cancelled
}

func (s Status) Valid() bool {
	return ByName(string(s)) != nil
}

// ByName returns the status for a given code, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if string(s) == strings.ToUpper(strings.TrimSpace(name)) {
			return &s
		}
	}
	return nil
}
