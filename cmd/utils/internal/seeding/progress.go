package seeding

import (
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/event"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

// Progress returns the status updates that walk o from PENDING to its
// final status, as the backend would push them. The last event is the
// orderCompleted notice.
func Progress(o order.Order, eta time.Duration, now time.Time) ([]event.Event, error) {
	accepted := now
	ready := now.Add(eta)
	delivered := ready.Add(5 * time.Minute)

	confirmed := orderstatus.Confirmed
	readyStatus := orderstatus.Ready
	done := orderstatus.Delivered

	patches := []order.Patch{
		{ID: o.ID, Status: &confirmed, AcceptedAt: order.TimePtr(accepted), EstimatedTime: order.TimePtr(ready)},
		{ID: o.ID, Status: &readyStatus, ReadyAt: order.TimePtr(ready)},
	}
	if o.IsDelivery() {
		out := orderstatus.OutForDelivery
		patches = append(patches, order.Patch{ID: o.ID, Status: &out})
	}
	patches = append(patches, order.Patch{ID: o.ID, Status: &done, DeliveredAt: order.TimePtr(delivered)})

	events := make([]event.Event, 0, len(patches)+1)
	for _, p := range patches {
		evt, err := event.Encode(event.EventOrderStatusUpdate, p)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}

	completed, err := event.Encode(event.EventOrderCompleted, event.OrderCompletedEvent{ID: o.ID, OrderNumber: o.OrderNumber})
	if err != nil {
		return nil, err
	}
	return append(events, completed), nil
}
