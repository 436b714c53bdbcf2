package console

import (
	"sync"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/order"
)

type ChangeKind string

const (
	ChangeOrders      ChangeKind = "orders"
	ChangeTimer       ChangeKind = "timer"
	ChangeConnection  ChangeKind = "connection"
	ChangeToast       ChangeKind = "toast"
	ChangeFlash       ChangeKind = "flash"
	ChangeDialogClose ChangeKind = "dialog-close"
)

type ToastKind string

const (
	ToastInfo       ToastKind = "info"
	ToastProcessing ToastKind = "processing"
	ToastSuccess    ToastKind = "success"
	ToastError      ToastKind = "error"
)

// Toast is a self-dismissing operator message.
type Toast struct {
	ID        string
	Kind      ToastKind
	Text      string
	ExpiresAt time.Time
	Expired   bool
}

// Change is what the view observes. Only the fields relevant to Kind are set.
type Change struct {
	Kind      ChangeKind
	OrderID   int64
	Remaining int
	State     order.ConnState
	Toast     *Toast
	Text      string
}

const hubBuffer = 64

// Hub fans changes out to view subscribers. Slow subscribers lose changes;
// every orders change carries the full picture on the next render.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Change)}
}

func (h *Hub) Subscribe(id string) <-chan Change {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Change, hubBuffer)
	h.subs[id] = ch
	return ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
