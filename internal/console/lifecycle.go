package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

// Action is an operator command on a single order.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReady    Action = "ready"
	ActionDelivery Action = "delivery"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

const (
	MinETAMinutes = 5
	MaxETAMinutes = 480
)

// ETAPresets are the one-click choices of the accept dialog.
var ETAPresets = []int{10, 15, 20, 25}

// Effect is a side effect attached to a transition.
type Effect uint8

const (
	SetAcceptedAt Effect = 1 << iota
	SetEstimatedTime
	SetReadyAt
	SetDeliveredAt
	StartTimer
	StopTimer
	RemoveOrder
)

func (e Effect) Has(f Effect) bool {
	return e&f != 0
}

// Transition is one row of the lifecycle table. An empty OrderType matches
// both pickup and delivery orders.
type Transition struct {
	From      orderstatus.Status
	Action    Action
	OrderType order.Type
	To        orderstatus.Status
	Effects   Effect
	Confirm   bool
	Label     string
}

// transitions is the order lifecycle. PREPARING is matched through its
// canonical CONFIRMED form and is never produced locally.
var transitions = []Transition{
	{From: orderstatus.Pending, Action: ActionAccept, To: orderstatus.Confirmed,
		Effects: SetAcceptedAt | SetEstimatedTime | StartTimer, Label: "Elfogadás"},
	{From: orderstatus.Pending, Action: ActionCancel, To: orderstatus.Cancelled,
		Effects: RemoveOrder, Confirm: true, Label: "Elutasítás"},
	{From: orderstatus.Confirmed, Action: ActionReady, To: orderstatus.Ready,
		Effects: SetReadyAt | StopTimer, Label: "Elkészült"},
	{From: orderstatus.Ready, Action: ActionComplete, OrderType: order.TypePickup, To: orderstatus.Delivered,
		Effects: SetDeliveredAt | RemoveOrder, Label: "Átadva"},
	{From: orderstatus.Ready, Action: ActionDelivery, OrderType: order.TypeDelivery, To: orderstatus.OutForDelivery,
		Label: "Kiszállításra átadva"},
	{From: orderstatus.OutForDelivery, Action: ActionComplete, To: orderstatus.Delivered,
		Effects: SetDeliveredAt | RemoveOrder, Label: "Kiszállítva"},
}

func (t Transition) matches(o order.Order, a Action) bool {
	if t.Action != a || t.From != o.Status.Canonical() {
		return false
	}
	return t.OrderType == "" || t.OrderType == o.OrderType
}

// Lookup finds the row for a on o.
func Lookup(o order.Order, a Action) (Transition, bool) {
	for _, t := range transitions {
		if t.matches(o, a) {
			return t, true
		}
	}
	return Transition{}, false
}

// LegalTransitions lists the rows the operator may trigger on o, in table
// order. The view derives its action buttons from it.
func LegalTransitions(o order.Order) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.matches(o, t.Action) {
			out = append(out, t)
		}
	}
	return out
}

// Transitions returns a copy of the table.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionAccept, ActionReady, ActionDelivery, ActionComplete, ActionCancel:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, s)
}

// Plan validates a on o and builds the optimistic patch for it.
func Plan(o order.Order, a Action, etaMinutes int, now time.Time) (Transition, order.Patch, error) {
	t, ok := Lookup(o, a)
	if !ok {
		return Transition{}, order.Patch{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, a, o.Status)
	}

	if t.Effects.Has(SetEstimatedTime) {
		if err := ValidateETA(etaMinutes); err != nil {
			return Transition{}, order.Patch{}, err
		}
	}

	p := order.StatusPatch(o.ID, t.To)
	if t.Effects.Has(SetAcceptedAt) {
		p.AcceptedAt = order.TimePtr(now)
	}
	if t.Effects.Has(SetEstimatedTime) {
		p.EstimatedTime = order.TimePtr(now.Add(time.Duration(etaMinutes) * time.Minute))
	}
	if t.Effects.Has(SetReadyAt) {
		p.ReadyAt = order.TimePtr(now)
	}
	if t.Effects.Has(SetDeliveredAt) {
		p.DeliveredAt = order.TimePtr(now)
	}
	return t, p, nil
}

// ValidateETA enforces 5..480 minutes.
func ValidateETA(minutes int) error {
	switch {
	case minutes < MinETAMinutes:
		return &InputError{Field: "minutes", Message: "Az idő legalább 5 perc kell legyen"}
	case minutes > MaxETAMinutes:
		return &InputError{Field: "minutes", Message: "Az idő legfeljebb 480 perc lehet"}
	}
	return nil
}

// ParseETA reads the numeric field of the accept dialog.
func ParseETA(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &InputError{Field: "minutes", Message: "Érvénytelen idő"}
	}
	if err := ValidateETA(n); err != nil {
		return 0, err
	}
	return n, nil
}
