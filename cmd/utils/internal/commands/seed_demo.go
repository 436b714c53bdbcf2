package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/cmd/utils/internal/seeding"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

// SeedDemo publishes a newOrder event for every demo order.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	t, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer t.close()

	return seedDemo(ctx, t.pub, t.subject, t.baseID, time.Now(), logger)
}

func seedDemo(ctx context.Context, pub EventPublisher, subject string, base int64, now time.Time, logger apt.Logger) error {
	orders := seeding.DemoOrders(base, now)

	events := make([]event.Event, 0, len(orders))
	for _, o := range orders {
		evt, err := event.Encode(event.EventNewOrder, o)
		if err != nil {
			return fmt.Errorf("encode order %d: %w", o.ID, err)
		}
		events = append(events, evt)
	}

	if err := publishAll(ctx, pub, subject, events, logger); err != nil {
		return err
	}
	logger.Info("demo orders published", "count", len(orders), "subject", subject)
	return nil
}
