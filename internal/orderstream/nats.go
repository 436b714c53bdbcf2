package orderstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/appetiteclub/orderdesk/pkg"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

// NATSDialer subscribes to a subject carrying {event, data} envelopes.
type NATSDialer struct {
	URL     string
	Subject string
}

func NewNATSDialer(url, subject string) *NATSDialer {
	if subject == "" {
		subject = event.OrdersTopic
	}
	return &NATSDialer{URL: url, Subject: subject}
}

func (d *NATSDialer) Dial(ctx context.Context) (Session, error) {
	sub, err := pkg.NewNATSSubscriber(d.URL)
	if err != nil {
		return nil, err
	}

	s := &natsSession{sub: sub, msgs: make(chan event.Event, subscriberBuffer)}
	err = sub.Subscribe(ctx, d.Subject, func(_ context.Context, data []byte) error {
		var evt event.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return fmt.Errorf("decode nats envelope: %w", err)
		}
		s.enqueue(evt)
		return nil
	})
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("nats: subscribe %s: %w", d.Subject, err)
	}
	return s, nil
}

type natsSession struct {
	sub     *pkg.NATSSubscriber
	msgs    chan event.Event
	dropped atomic.Bool
}

// enqueue never blocks the NATS callback. A full buffer drops the event
// and the next Recv reports ErrLagged.
func (s *natsSession) enqueue(evt event.Event) {
	select {
	case s.msgs <- evt:
	default:
		s.dropped.Store(true)
	}
}

func (s *natsSession) Recv(ctx context.Context) (event.Event, error) {
	if s.dropped.Swap(false) {
		return event.Event{}, ErrLagged
	}
	select {
	case evt := <-s.msgs:
		return evt, nil
	case <-s.sub.Lost():
		if err := s.sub.Err(); err != nil {
			return event.Event{}, err
		}
		return event.Event{}, io.EOF
	case <-ctx.Done():
		return event.Event{}, ctx.Err()
	}
}

func (s *natsSession) Close() error {
	return s.sub.Close()
}
