package order

import (
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePickup   Type = "PICKUP"
	TypeDelivery Type = "DELIVERY"
)

func (t Type) Label() string {
	if t == TypeDelivery {
		return "Kiszállítás"
	}
	return "Elvitel"
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

func (p PaymentMethod) Label() string {
	if p == PaymentCard {
		return "Kártya"
	}
	return "Készpénz"
}

// Order mirrors the order aggregate returned by the backend.
type Order struct {
	ID            int64              `json:"id"`
	OrderNumber   string             `json:"orderNumber"`
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	Address       string             `json:"address,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Items         []LineItem         `json:"items"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
	OrderType     Type               `json:"orderType"`
	Status        orderstatus.Status `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	ScheduledFor  *time.Time         `json:"scheduledFor,omitempty"`
	AcceptedAt    *time.Time         `json:"acceptedAt,omitempty"`
	ReadyAt       *time.Time         `json:"readyAt,omitempty"`
	DeliveredAt   *time.Time         `json:"deliveredAt,omitempty"`
	EstimatedTime *time.Time         `json:"estimatedTime,omitempty"`
}

// LineItem is a single product line with its customizations.
type LineItem struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	SelectedSauce string          `json:"selectedSauce,omitempty"`
	FriesUpgrade  string          `json:"friesUpgrade,omitempty"`
	Extras        []string        `json:"extras,omitempty"`
	RemoveItems   []string        `json:"removeItems,omitempty"`
	SpecialNotes  string          `json:"specialNotes,omitempty"`
}

func (o Order) IsDelivery() bool {
	return o.OrderType == TypeDelivery
}

// Clone returns a deep copy so callers never share slices or time pointers
// with the store.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]LineItem, len(o.Items))
		for i, it := range o.Items {
			c.Items[i] = it
			c.Items[i].Extras = append([]string(nil), it.Extras...)
			c.Items[i].RemoveItems = append([]string(nil), it.RemoveItems...)
		}
	}
	c.ScheduledFor = cloneTime(o.ScheduledFor)
	c.AcceptedAt = cloneTime(o.AcceptedAt)
	c.ReadyAt = cloneTime(o.ReadyAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	c.EstimatedTime = cloneTime(o.EstimatedTime)
	return c
}

// Patch is a partial order. Nil fields are left untouched by Apply.
type Patch struct {
	ID            int64               `json:"id"`
	OrderNumber   *string             `json:"orderNumber,omitempty"`
	Status        *orderstatus.Status `json:"status,omitempty"`
	AcceptedAt    *time.Time          `json:"acceptedAt,omitempty"`
	ReadyAt       *time.Time          `json:"readyAt,omitempty"`
	DeliveredAt   *time.Time          `json:"deliveredAt,omitempty"`
	EstimatedTime *time.Time          `json:"estimatedTime,omitempty"`
}

// Apply merges the patch into o (shallow merge).
func (p Patch) Apply(o *Order) {
	if o == nil {
		return
	}
	if p.OrderNumber != nil {
		o.OrderNumber = *p.OrderNumber
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.AcceptedAt != nil {
		o.AcceptedAt = cloneTime(p.AcceptedAt)
	}
	if p.ReadyAt != nil {
		o.ReadyAt = cloneTime(p.ReadyAt)
	}
	if p.DeliveredAt != nil {
		o.DeliveredAt = cloneTime(p.DeliveredAt)
	}
	if p.EstimatedTime != nil {
		o.EstimatedTime = cloneTime(p.EstimatedTime)
	}
}

// StatusPatch builds a patch that only carries a status.
func StatusPatch(id int64, status orderstatus.Status) Patch {
	return Patch{ID: id, Status: &status}
}

// ConnState is the event channel connection state shown in the header.
type ConnState string

const (
	Connected    ConnState = "CONNECTED"
	Disconnected ConnState = "DISCONNECTED"
	ConnError    ConnState = "ERROR"
)

func (s ConnState) Label() string {
	switch s {
	case Connected:
		return "Kapcsolódva"
	case ConnError:
		return "Kapcsolati hiba"
	default:
		return "Nincs kapcsolat"
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr is a small helper for building optional instants.
func TimePtr(t time.Time) *time.Time {
	return &t
}
