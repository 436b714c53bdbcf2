package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/internal/backend"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

// Backend is the command channel the console needs.
type Backend interface {
	ListActive(ctx context.Context) ([]order.Order, error)
	Accept(ctx context.Context, id int64, estimatedMinutes int) error
	Cancel(ctx context.Context, id int64) error
	MarkReady(ctx context.Context, id int64) error
	MarkOutForDelivery(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64) error
}

// Input is what the operator supplied with an action.
type Input struct {
	Minutes   int
	Confirmed bool
}

var successText = map[Action]string{
	ActionAccept:   "Rendelés elfogadva: %s",
	ActionReady:    "Rendelés elkészült: %s",
	ActionDelivery: "Kiszállításra átadva: %s",
	ActionComplete: "Rendelés teljesítve: %s",
	ActionCancel:   "Rendelés törölve: %s",
}

// Dispatcher turns operator actions into an optimistic store change and a
// backend command, and reconciles after the outcome.
type Dispatcher struct {
	loop       *Loop
	clock      Clock
	store      *Store
	timers     *Timers
	reconciler *Reconciler
	notifier   Notifier
	backend    Backend
	publish    func(Change)
	logger     apt.Logger

	// busy holds orders with a command awaiting its answer.
	busy map[int64]bool
}

// Dispatch runs on the Loop. Validation errors are returned synchronously;
// the command outcome arrives later as toasts and store changes.
func (d *Dispatcher) Dispatch(a Action, id int64, in Input) error {
	o, ok := d.store.Get(id)
	if !ok {
		d.notifier.Toast(ToastError, "A rendelés már nem aktív")
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if d.busy[id] {
		d.notifier.Toast(ToastInfo, fmt.Sprintf("Folyamatban van egy művelet: %s", o.OrderNumber))
		return fmt.Errorf("%w: %d", ErrCommandInProgress, id)
	}

	t, patch, err := Plan(o, a, in.Minutes, d.clock.Now())
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			d.notifier.Toast(ToastError, fmt.Sprintf("Ez a művelet most nem engedélyezett: %s", o.OrderNumber))
		}
		return err
	}
	if t.Confirm && !in.Confirmed {
		return ErrConfirmationRequired
	}

	d.publish(Change{Kind: ChangeDialogClose, OrderID: id})
	d.notifier.Toast(ToastProcessing, fmt.Sprintf("Feldolgozás: %s", o.OrderNumber))
	d.store.PatchOptimistic(patch)
	syncTimer(d.store, d.timers, id)

	if d.busy == nil {
		d.busy = make(map[int64]bool)
	}
	d.busy[id] = true
	d.reconciler.BeginCommand()

	cmd := d.command(a, id, in.Minutes)
	d.loop.Async(func(ctx context.Context) func() {
		err := cmd(ctx)
		return func() { d.finish(a, o, err) }
	})
	return nil
}

func (d *Dispatcher) finish(a Action, o order.Order, err error) {
	delete(d.busy, o.ID)
	d.reconciler.EndCommand()
	if err != nil {
		d.logger.Error("order command failed", "action", a, "order_id", o.ID, "error", err)
		d.notifier.Toast(ToastError, fmt.Sprintf("Sikertelen művelet (%s): %s", o.OrderNumber, backend.Reason(err)))
		d.reconciler.Request()
		return
	}
	d.logger.Info("order command succeeded", "action", a, "order_id", o.ID)
	d.notifier.Toast(ToastSuccess, fmt.Sprintf(successText[a], o.OrderNumber))
	d.reconciler.AfterCommand()
}

func (d *Dispatcher) command(a Action, id int64, minutes int) func(ctx context.Context) error {
	switch a {
	case ActionAccept:
		return func(ctx context.Context) error { return d.backend.Accept(ctx, id, minutes) }
	case ActionReady:
		return func(ctx context.Context) error { return d.backend.MarkReady(ctx, id) }
	case ActionDelivery:
		return func(ctx context.Context) error { return d.backend.MarkOutForDelivery(ctx, id) }
	case ActionComplete:
		return func(ctx context.Context) error { return d.backend.Complete(ctx, id) }
	default:
		return func(ctx context.Context) error { return d.backend.Cancel(ctx, id) }
	}
}

// syncTimer keeps the timer table in line with the stored order.
func syncTimer(s *Store, t *Timers, id int64) {
	if o, ok := s.Get(id); ok {
		t.Sync(o)
		return
	}
	t.Stop(id)
}
