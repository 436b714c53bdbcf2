package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/cmd/utils/internal/seeding"
)

// ProgressDemo walks every demo order through its lifecycle, pausing
// demo.step between events so the console can be watched.
func ProgressDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	t, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer t.close()

	step := 2 * time.Second
	if raw, ok := config.GetString("demo.step"); ok && raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			step = d
		}
	}
	return progressDemo(ctx, t.pub, t.subject, t.baseID, step, time.Now(), logger)
}

func progressDemo(ctx context.Context, pub EventPublisher, subject string, base int64, step time.Duration, now time.Time, logger apt.Logger) error {
	for _, o := range seeding.DemoOrders(base, now) {
		events, err := seeding.Progress(o, 15*time.Minute, now)
		if err != nil {
			return fmt.Errorf("build progress for order %d: %w", o.ID, err)
		}
		for i := range events {
			if err := publishAll(ctx, pub, subject, events[i:i+1], logger); err != nil {
				return err
			}
			if err := pause(ctx, step); err != nil {
				return err
			}
		}
		logger.Info("demo order progressed", "order_id", o.ID)
	}
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
