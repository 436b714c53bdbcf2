package orderstream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/pkg/event"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

const (
	defaultMinBackoff = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
	subscriberBuffer  = 256
)

// ErrLagged is returned by a Session that had to drop events. The session
// stays usable.
var ErrLagged = errors.New("order event stream dropped events")

// Session is one live connection to the push channel.
type Session interface {
	// Recv blocks until the next event. io.EOF means the server closed the
	// stream cleanly.
	Recv(ctx context.Context) (event.Event, error)
	Close() error
}

// Dialer opens sessions. One implementation per transport.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Message is either a pushed event or a connection state change.
// Lagged is set when earlier messages for this subscriber were dropped.
type Message struct {
	Event  event.Event
	State  order.ConnState
	Lagged bool
}

func (m Message) IsState() bool {
	return m.State != ""
}

type subscriber struct {
	ch     chan Message
	lagged bool
}

// Client keeps one connection to the order event channel and broadcasts
// what it receives to subscribers.
type Client struct {
	dialer Dialer
	logger apt.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	mu          sync.RWMutex
	subscribers map[string]*subscriber
	state       order.ConnState

	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

type Option func(*Client)

// WithBackoff bounds the reconnect delay.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.minBackoff = min
		}
		if max >= c.minBackoff {
			c.maxBackoff = max
		}
	}
}

// NewClient creates a new order event stream client
func NewClient(dialer Dialer, logger apt.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		dialer:      dialer,
		logger:      logger,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		subscribers: make(map[string]*subscriber),
		state:       order.Disconnected,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start connects in the background so service startup is never blocked.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Info("starting order event stream client")
	go c.connectWithRetry()
	return nil
}

// State returns the last published connection state.
func (c *Client) State() order.ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) connectWithRetry() {
	defer close(c.done)

	backoff := c.minBackoff
	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("order event stream client shutdown, stopping connection attempts")
			return
		default:
		}

		session, err := c.dialer.Dial(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to connect to order event stream", "error", err, "retry_in", backoff)
			c.setState(order.ConnError)
			if !c.wait(backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}

		c.logger.Info("connected to order event stream")
		c.setState(order.Connected)
		backoff = c.minBackoff

		err = c.receiveEvents(session)
		session.Close()
		if c.ctx.Err() != nil {
			return
		}

		if errors.Is(err, io.EOF) {
			c.logger.Info("order event stream closed by server")
			c.setState(order.Disconnected)
		} else {
			c.logger.Error("error receiving from order event stream", "error", err)
			c.setState(order.ConnError)
		}

		if !c.wait(backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.maxBackoff)
	}
}

func (c *Client) receiveEvents(session Session) error {
	for {
		evt, err := session.Recv(c.ctx)
		if errors.Is(err, ErrLagged) {
			c.markLagged()
			continue
		}
		if err != nil {
			return err
		}
		c.broadcast(Message{Event: evt})
	}
}

func (c *Client) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Client) setState(state order.ConnState) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if changed {
		c.broadcast(Message{State: state})
	}
}

// markLagged flags every subscriber so its next message reports the gap.
func (c *Client) markLagged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("order event session dropped events", "subscribers", len(c.subscribers))
	for _, sub := range c.subscribers {
		sub.lagged = true
	}
}

// broadcast never blocks on events. State changes are delivered even to
// slow subscribers because reconciliation depends on them.
func (c *Client) broadcast(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, sub := range c.subscribers {
		out := msg
		out.Lagged = sub.lagged
		select {
		case sub.ch <- out:
			sub.lagged = false
			continue
		default:
		}

		if !msg.IsState() {
			sub.lagged = true
			c.logger.Info("subscriber channel full, dropping event", "subscriber_id", id, "event", msg.Event.Name)
			continue
		}

		select {
		case sub.ch <- out:
			sub.lagged = false
		case <-c.ctx.Done():
		}
	}
}

// Subscribe adds a subscriber. The current state is queued first.
func (c *Client) Subscribe(subscriberID string) <-chan Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Message, subscriberBuffer)
	ch <- Message{State: c.state}
	c.subscribers[subscriberID] = &subscriber{ch: ch}

	c.logger.Info("new order event subscriber", "subscriber_id", subscriberID, "total_subscribers", len(c.subscribers))
	return ch
}

func (c *Client) Unsubscribe(subscriberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, ok := c.subscribers[subscriberID]; ok {
		close(sub.ch)
		delete(c.subscribers, subscriberID)
		c.logger.Info("order event subscriber removed", "subscriber_id", subscriberID, "total_subscribers", len(c.subscribers))
	}
}

// Stop cancels the connection loop and closes every subscriber channel.
func (c *Client) Stop(ctx context.Context) error {
	c.logger.Info("stopping order event stream client")
	c.cancel()

	if c.started.Load() {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}

	c.mu.Lock()
	for id, sub := range c.subscribers {
		close(sub.ch)
		delete(c.subscribers, id)
	}
	c.state = order.Disconnected
	c.mu.Unlock()

	return nil
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
