package console

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/order"
)

// fakeClock only moves when told to. Due callbacks fire one at a time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

// fireNext runs the earliest callback due at or before target.
func (c *fakeClock) fireNext(target time.Time) bool {
	c.mu.Lock()
	var next *fakeTimer
	for _, t := range c.timers {
		if t.done || t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) {
			next = t
		}
	}
	if next == nil {
		c.mu.Unlock()
		return false
	}
	next.done = true
	if next.at.After(c.now) {
		c.now = next.at
	}
	c.mu.Unlock()

	next.fn()
	return true
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

// MockBackend implements Backend for testing
type MockBackend struct {
	mu     sync.Mutex
	active []order.Order
	calls  []string

	ListActiveFunc         func(ctx context.Context) ([]order.Order, error)
	AcceptFunc             func(ctx context.Context, id int64, estimatedMinutes int) error
	CancelFunc             func(ctx context.Context, id int64) error
	MarkReadyFunc          func(ctx context.Context, id int64) error
	MarkOutForDeliveryFunc func(ctx context.Context, id int64) error
	CompleteFunc           func(ctx context.Context, id int64) error
}

// SetActive sets what ListActive returns when ListActiveFunc is nil.
func (m *MockBackend) SetActive(orders ...order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = orders
}

func (m *MockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockBackend) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockBackend) ListActive(ctx context.Context) ([]order.Order, error) {
	m.record("ListActive")
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]order.Order, len(m.active))
	for i, o := range m.active {
		out[i] = o.Clone()
	}
	return out, nil
}

func (m *MockBackend) Accept(ctx context.Context, id int64, estimatedMinutes int) error {
	m.record("Accept")
	if m.AcceptFunc != nil {
		return m.AcceptFunc(ctx, id, estimatedMinutes)
	}
	return nil
}

func (m *MockBackend) Cancel(ctx context.Context, id int64) error {
	m.record("Cancel")
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return nil
}

func (m *MockBackend) MarkReady(ctx context.Context, id int64) error {
	m.record("MarkReady")
	if m.MarkReadyFunc != nil {
		return m.MarkReadyFunc(ctx, id)
	}
	return nil
}

func (m *MockBackend) MarkOutForDelivery(ctx context.Context, id int64) error {
	m.record("MarkOutForDelivery")
	if m.MarkOutForDeliveryFunc != nil {
		return m.MarkOutForDeliveryFunc(ctx, id)
	}
	return nil
}

func (m *MockBackend) Complete(ctx context.Context, id int64) error {
	m.record("Complete")
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id)
	}
	return nil
}

type toastCall struct {
	Kind ToastKind
	Text string
}

// MockNotifier records what the console asked it to present.
type MockNotifier struct {
	mu      sync.Mutex
	arrived []string
	toasts  []toastCall
	states  []order.ConnState
}

func (m *MockNotifier) OrderArrived(o order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arrived = append(m.arrived, o.OrderNumber)
}

func (m *MockNotifier) Toast(kind ToastKind, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = append(m.toasts, toastCall{Kind: kind, Text: text})
}

func (m *MockNotifier) Connection(state order.ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *MockNotifier) Arrived() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.arrived...)
}

func (m *MockNotifier) Toasts() []toastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]toastCall(nil), m.toasts...)
}
