package console

import (
	"github.com/appetiteclub/orderdesk/pkg/event"
)

// handleEvent applies one pushed event. Every branch is idempotent.
func (c *Console) handleEvent(evt event.Event) {
	c.reconciler.Observe(c.clock.Now())

	switch evt.Name {
	case event.EventNewOrder:
		o, err := evt.NewOrder()
		if err != nil {
			c.logger.Error("invalid order event", "event", evt.Name, "error", err)
			return
		}
		known := c.store.Has(o.ID)
		c.store.Upsert(o)
		syncTimer(c.store, c.timers, o.ID)
		if !known && !o.Status.Terminal() {
			c.notifier.OrderArrived(o)
		}

	case event.EventOrderStatusUpdate:
		p, err := evt.StatusUpdate()
		if err != nil {
			c.logger.Error("invalid order event", "event", evt.Name, "error", err)
			return
		}
		if !c.store.Has(p.ID) {
			c.logger.Info("status update for unknown order, reconciling", "order_id", p.ID)
			c.reconciler.Request()
			return
		}
		c.store.ApplyServer(p)
		syncTimer(c.store, c.timers, p.ID)

	case event.EventOrderCompleted:
		done, err := evt.Completed()
		if err != nil {
			c.logger.Error("invalid order event", "event", evt.Name, "error", err)
			return
		}
		c.store.Remove(done.ID)
		c.timers.Stop(done.ID)

	default:
		c.logger.Debug("ignoring unknown order event", "event", evt.Name)
	}
}
