package pkg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/orderdesk/pkg/event"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("orderdesk-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

// PublishEvent publishes a named event as a {event, data} envelope.
func (p *NATSPublisher) PublishEvent(ctx context.Context, topic string, evt event.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Name, err)
	}
	if err := p.Publish(ctx, topic, raw); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber owns a single NATS connection. Reconnection is left to the
// caller, so a dropped connection closes Lost() instead of retrying silently.
type NATSSubscriber struct {
	conn     *nats.Conn
	lost     chan struct{}
	lostOnce sync.Once
	lostErr  error
}

func NewNATSSubscriber(url string) (*NATSSubscriber, error) {
	s := &NATSSubscriber{lost: make(chan struct{})}
	conn, err := nats.Connect(url,
		nats.Name("orderdesk-console"),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.markLost(err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			s.markLost(nil)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s.conn = conn
	return s, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	_, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		_ = handler(ctx, msg.Data)
	})
	if err != nil {
		return err
	}
	return s.conn.Flush()
}

// Lost is closed once the connection drops or is closed.
func (s *NATSSubscriber) Lost() <-chan struct{} {
	return s.lost
}

// Err returns the disconnect cause, if any.
func (s *NATSSubscriber) Err() error {
	select {
	case <-s.lost:
		return s.lostErr
	default:
		return nil
	}
}

func (s *NATSSubscriber) markLost(err error) {
	s.lostOnce.Do(func() {
		s.lostErr = err
		close(s.lost)
	})
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
