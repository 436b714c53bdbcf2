package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type published struct {
	topic string
	evt   event.Event
}

// MockPublisher implements EventPublisher for testing
type MockPublisher struct {
	PublishEventFunc func(ctx context.Context, topic string, evt event.Event) error
	events           []published
}

func (m *MockPublisher) PublishEvent(ctx context.Context, topic string, evt event.Event) error {
	if m.PublishEventFunc != nil {
		if err := m.PublishEventFunc(ctx, topic, evt); err != nil {
			return err
		}
	}
	m.events = append(m.events, published{topic: topic, evt: evt})
	return nil
}

func (m *MockPublisher) names() []string {
	out := make([]string, 0, len(m.events))
	for _, p := range m.events {
		out = append(out, p.evt.Name)
	}
	return out
}

func TestSeedDemo(t *testing.T) {
	pub := &MockPublisher{}
	if err := seedDemo(context.Background(), pub, "orders.events", 100, t0, apt.NewNoopLogger()); err != nil {
		t.Fatalf("seedDemo() error = %v", err)
	}

	if len(pub.events) != 3 {
		t.Fatalf("published %d events, want 3", len(pub.events))
	}
	for i, p := range pub.events {
		if p.topic != "orders.events" || p.evt.Name != event.EventNewOrder {
			t.Errorf("event %d = %s on %s", i, p.evt.Name, p.topic)
		}
		o, err := p.evt.NewOrder()
		if err != nil {
			t.Fatalf("event %d does not decode: %v", i, err)
		}
		if o.ID != int64(100+i) {
			t.Errorf("event %d id = %d", i, o.ID)
		}
	}
}

func TestProgressDemo(t *testing.T) {
	pub := &MockPublisher{}
	if err := progressDemo(context.Background(), pub, "orders.events", 1, 0, t0, apt.NewNoopLogger()); err != nil {
		t.Fatalf("progressDemo() error = %v", err)
	}

	// two pickups with 4 events each, one delivery with 5
	if got := len(pub.events); got != 13 {
		t.Fatalf("published %d events, want 13: %v", got, pub.names())
	}
	if last := pub.events[len(pub.events)-1].evt.Name; last != event.EventOrderCompleted {
		t.Errorf("last event = %s", last)
	}
}

func TestClearDemoStopsOnError(t *testing.T) {
	boom := errors.New("nats down")
	pub := &MockPublisher{PublishEventFunc: func(ctx context.Context, topic string, evt event.Event) error {
		return boom
	}}

	err := clearDemo(context.Background(), pub, "orders.events", 1, apt.NewNoopLogger())
	if !errors.Is(err, boom) {
		t.Fatalf("clearDemo() error = %v, want %v", err, boom)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events after failure", len(pub.events))
	}
}

func TestProgressDemoHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &MockPublisher{}
	err := progressDemo(ctx, pub, "orders.events", 1, time.Minute, t0, apt.NewNoopLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("progressDemo() error = %v, want context.Canceled", err)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1 before cancel", len(pub.events))
	}
}
