package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/cmd/utils/internal/seeding"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

// ClearDemo publishes orderCompleted for every demo order so consoles drop them.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	t, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer t.close()

	return clearDemo(ctx, t.pub, t.subject, t.baseID, logger)
}

func clearDemo(ctx context.Context, pub EventPublisher, subject string, base int64, logger apt.Logger) error {
	orders := seeding.DemoOrders(base, time.Now())

	events := make([]event.Event, 0, len(orders))
	for _, o := range orders {
		evt, err := event.Encode(event.EventOrderCompleted, event.OrderCompletedEvent{ID: o.ID, OrderNumber: o.OrderNumber})
		if err != nil {
			return fmt.Errorf("encode completion %d: %w", o.ID, err)
		}
		events = append(events, evt)
	}

	if err := publishAll(ctx, pub, subject, events, logger); err != nil {
		return err
	}
	logger.Info("demo orders cleared", "count", len(orders))
	return nil
}
