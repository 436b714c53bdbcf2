package console

import "github.com/appetiteclub/orderdesk/pkg/order"

// Notifier presents operator alerts. Implementations must not block the Loop.
type Notifier interface {
	OrderArrived(o order.Order)
	Toast(kind ToastKind, text string)
	Connection(state order.ConnState)
}

type noopNotifier struct{}

func (noopNotifier) OrderArrived(order.Order) {}
func (noopNotifier) Toast(ToastKind, string) {}
func (noopNotifier) Connection(order.ConnState) {}
