package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/pkg"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

const defaultBaseID = 9000

// EventPublisher sends one envelope to a subject. *pkg.NATSPublisher satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, evt event.Event) error
}

type target struct {
	pub     EventPublisher
	subject string
	baseID  int64
	close   func() error
}

// connect publishes through JetStream when nats.stream.enabled is true so
// demo events are retained, and through core NATS otherwise.
func connect(ctx context.Context, config *apt.Config, logger apt.Logger) (*target, error) {
	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")
	subject := config.GetStringOrDef("events.nats.subject", event.OrdersTopic)

	t := &target{subject: subject, baseID: baseID(config)}

	streamEnabled, _ := config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:        natsURL,
			StreamName: config.GetStringOrDef("nats.stream.name", "ORDER_EVENTS"),
			Subject:    subject,
			MaxAge:     24 * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("open nats stream: %w", err)
		}
		logger.Info("publishing through NATS stream", "subject", subject)
		t.pub = stream
		t.close = func() error {
			if n, err := stream.Retained(context.Background()); err == nil {
				logger.Info("stream retains demo events", "messages", n)
			}
			return stream.Close()
		}
		return t, nil
	}

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	t.pub = pub
	t.close = pub.Close
	return t, nil
}

func baseID(config *apt.Config) int64 {
	raw, ok := config.GetString("demo.base_id")
	if !ok || raw == "" {
		return defaultBaseID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return defaultBaseID
	}
	return id
}

func publishAll(ctx context.Context, pub EventPublisher, subject string, events []event.Event, logger apt.Logger) error {
	for _, evt := range events {
		if err := pub.PublishEvent(ctx, subject, evt); err != nil {
			return fmt.Errorf("publish %s: %w", evt.Name, err)
		}
		logger.Debug("event published", "event", evt.Name, "subject", subject)
	}
	return nil
}
