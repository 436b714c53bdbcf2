package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/internal/console"
	"github.com/appetiteclub/orderdesk/pkg/order"
	"github.com/google/uuid"
)

const defaultTTL = 5 * time.Second

// Publisher receives view changes. *console.Hub satisfies it.
type Publisher interface {
	Publish(c console.Change)
}

// Notifier shows toasts, chimes on new orders and tracks the connection
// indicator. It is safe for concurrent use.
type Notifier struct {
	pub    Publisher
	clock  console.Clock
	chimer Chimer
	ttl    time.Duration
	logger apt.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	toasts  map[string]console.Toast
	expiry  map[string]console.Stopper
	conn    order.ConnState
	flashes int
}

type Option func(*Notifier)

func WithClock(c console.Clock) Option {
	return func(n *Notifier) {
		if c != nil {
			n.clock = c
		}
	}
}

func WithChimer(c Chimer) Option {
	return func(n *Notifier) {
		if c != nil {
			n.chimer = c
		}
	}
}

func WithTTL(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.ttl = d
		}
	}
}

func WithLogger(logger apt.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func New(pub Publisher, opts ...Option) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		pub:    pub,
		clock:  console.SystemClock(),
		chimer: NewBellChimer(nil),
		ttl:    defaultTTL,
		logger: apt.NewNoopLogger(),
		ctx:    ctx,
		cancel: cancel,
		toasts: make(map[string]console.Toast),
		expiry: make(map[string]console.Stopper),
		conn:   order.Disconnected,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OrderArrived chimes in the background and shows a toast. A failed chime
// becomes a visual flash.
func (n *Notifier) OrderArrived(o order.Order) {
	go n.chime(o)
	n.Toast(console.ToastInfo, fmt.Sprintf("Új rendelés érkezett: %s", o.OrderNumber))
}

func (n *Notifier) chime(o order.Order) {
	err := n.chimer.Chime(n.ctx)
	if err == nil || n.ctx.Err() != nil {
		return
	}
	n.logger.Debug("chime unavailable, flashing instead", "order_id", o.ID, "reason", err)

	n.mu.Lock()
	n.flashes++
	n.mu.Unlock()
	n.pub.Publish(console.Change{
		Kind:    console.ChangeFlash,
		OrderID: o.ID,
		Text:    fmt.Sprintf("Új rendelés: %s", o.OrderNumber),
	})
}

func (n *Notifier) Toast(kind console.ToastKind, text string) {
	t := console.Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      text,
		ExpiresAt: n.clock.Now().Add(n.ttl),
	}

	n.mu.Lock()
	n.toasts[t.ID] = t
	n.expiry[t.ID] = n.clock.AfterFunc(n.ttl, func() { n.expire(t.ID) })
	n.mu.Unlock()

	n.pub.Publish(console.Change{Kind: console.ChangeToast, Toast: &t})
}

func (n *Notifier) expire(id string) {
	n.mu.Lock()
	t, ok := n.toasts[id]
	delete(n.toasts, id)
	delete(n.expiry, id)
	n.mu.Unlock()

	if !ok {
		return
	}
	t.Expired = true
	n.pub.Publish(console.Change{Kind: console.ChangeToast, Toast: &t})
}

// Active lists unexpired toasts, oldest first.
func (n *Notifier) Active() []console.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]console.Toast, 0, len(n.toasts))
	for _, t := range n.toasts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

func (n *Notifier) Connection(state order.ConnState) {
	n.mu.Lock()
	n.conn = state
	n.mu.Unlock()
}

// Indicator returns the header connection state.
func (n *Notifier) Indicator() order.ConnState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn
}

// Flashes counts chime fallbacks.
func (n *Notifier) Flashes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.flashes
}

// Stop cancels pending chimes and toast expiries.
func (n *Notifier) Stop(ctx context.Context) error {
	n.cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, s := range n.expiry {
		s.Stop()
		delete(n.expiry, id)
	}
	return nil
}
