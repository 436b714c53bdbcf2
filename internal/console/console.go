package console

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/internal/orderstream"
	"github.com/appetiteclub/orderdesk/pkg/order"
	"golang.org/x/sync/errgroup"
)

const streamSubscriberID = "console"

// Stream is the event channel as seen by the console.
type Stream interface {
	Subscribe(id string) <-chan orderstream.Message
	Unsubscribe(id string)
}

// OrderState is an order together with its derived console state.
type OrderState struct {
	Order      order.Order
	Remaining  int
	HasTimer   bool
	Optimistic bool
	Actions    []Transition
}

// Snapshot is a consistent read of the console taken on the Loop.
type Snapshot struct {
	Now        time.Time
	Orders     []OrderState
	Counts     Counts
	Connection order.ConnState
}

// Console ties the order store, lifecycle, timers, dispatcher and
// reconciler to the event stream and the command channel.
type Console struct {
	logger   apt.Logger
	clock    Clock
	cfg      Config
	notifier Notifier
	backend  Backend
	stream   Stream

	loop       *Loop
	hub        *Hub
	store      *Store
	timers     *Timers
	reconciler *Reconciler
	dispatcher *Dispatcher

	conn      order.ConnState
	connKnown bool

	started atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

type Option func(*Console)

func WithClock(clock Clock) Option {
	return func(c *Console) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(c *Console) {
		c.cfg = cfg.withDefaults()
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Console) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithHub shares a change hub with other publishers such as the notifier.
func WithHub(h *Hub) Option {
	return func(c *Console) {
		if h != nil {
			c.hub = h
		}
	}
}

func New(backend Backend, stream Stream, logger apt.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	c := &Console{
		logger:   logger,
		clock:    SystemClock(),
		cfg:      DefaultConfig(),
		notifier: noopNotifier{},
		backend:  backend,
		stream:   stream,
		hub:      NewHub(),
		conn:     order.Disconnected,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.loop = NewLoop(logger)
	c.store = NewStore(func() {
		c.hub.Publish(Change{Kind: ChangeOrders})
	})
	c.timers = NewTimers(c.clock, c.loop.Post, func(id int64, remaining int) {
		c.hub.Publish(Change{Kind: ChangeTimer, OrderID: id, Remaining: remaining})
	})
	c.reconciler = NewReconciler(c.loop, c.clock, backend.ListActive, c.replace, c.cfg, logger)
	c.dispatcher = &Dispatcher{
		loop:       c.loop,
		clock:      c.clock,
		store:      c.store,
		timers:     c.timers,
		reconciler: c.reconciler,
		notifier:   c.notifier,
		backend:    backend,
		publish:    c.hub.Publish,
		logger:     logger,
	}
	return c
}

// Start runs the loop and the event pump, then loads the active list.
func (c *Console) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Info("starting order console")

	runCtx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(runCtx)
	c.cancel = cancel
	c.group = group

	group.Go(func() error {
		return c.loop.Run(gctx)
	})
	if c.stream != nil {
		ch := c.stream.Subscribe(streamSubscriberID)
		group.Go(func() error {
			return c.pump(gctx, ch)
		})
	}

	c.loop.Post(c.reconciler.Request)
	return nil
}

// Stop cancels timers and scheduled refreshes, then stops the loop.
func (c *Console) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}
	c.logger.Info("stopping order console")

	if err := c.loop.Call(ctx, func() {
		c.reconciler.Stop()
		c.timers.StopAll()
	}); err != nil {
		c.logger.Error("console teardown did not run on loop", "error", err)
	}
	if c.stream != nil {
		c.stream.Unsubscribe(streamSubscriberID)
	}

	c.cancel()
	err := c.group.Wait()
	c.hub.Close()
	return err
}

func (c *Console) pump(ctx context.Context, ch <-chan orderstream.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.loop.Post(func() { c.handle(msg) })
		}
	}
}

func (c *Console) handle(msg orderstream.Message) {
	if msg.Lagged {
		c.logger.Info("order event stream dropped events, deferring reconciliation")
		c.reconciler.Defer()
	}
	if msg.IsState() {
		c.setConnection(msg.State)
		return
	}
	c.handleEvent(msg.Event)
}

func (c *Console) setConnection(state order.ConnState) {
	if !c.connKnown || state != c.conn {
		c.connKnown = true
		c.conn = state
		c.logger.Info("order event stream state changed", "state", state)
		c.notifier.Connection(state)
		c.hub.Publish(Change{Kind: ChangeConnection, State: state})
	}
	c.reconciler.SetConnection(state)
}

func (c *Console) replace(orders []order.Order) {
	c.store.Replace(orders)
	c.timers.SyncAll(c.store.All())
}

// Dispatch validates and starts an operator action.
func (c *Console) Dispatch(ctx context.Context, a Action, id int64, in Input) error {
	var err error
	if callErr := c.loop.Call(ctx, func() {
		err = c.dispatcher.Dispatch(a, id, in)
	}); callErr != nil {
		return callErr
	}
	return err
}

func (c *Console) Accept(ctx context.Context, id int64, minutes int) error {
	return c.Dispatch(ctx, ActionAccept, id, Input{Minutes: minutes})
}

func (c *Console) MarkReady(ctx context.Context, id int64) error {
	return c.Dispatch(ctx, ActionReady, id, Input{})
}

func (c *Console) MarkOutForDelivery(ctx context.Context, id int64) error {
	return c.Dispatch(ctx, ActionDelivery, id, Input{})
}

func (c *Console) Complete(ctx context.Context, id int64) error {
	return c.Dispatch(ctx, ActionComplete, id, Input{})
}

// Cancel requires the operator to have confirmed the prompt.
func (c *Console) Cancel(ctx context.Context, id int64, confirmed bool) error {
	return c.Dispatch(ctx, ActionCancel, id, Input{Confirmed: confirmed})
}

// Refresh requests a reconciliation.
func (c *Console) Refresh(ctx context.Context) error {
	return c.loop.Call(ctx, c.reconciler.Request)
}

func (c *Console) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.loop.Call(ctx, func() {
		snap.Now = c.clock.Now()
		snap.Counts = c.store.Counts()
		snap.Connection = c.conn
		for _, o := range c.store.All() {
			snap.Orders = append(snap.Orders, c.orderState(o))
		}
	})
	return snap, err
}

// Order returns one active order or ErrNotFound.
func (c *Console) Order(ctx context.Context, id int64) (OrderState, error) {
	var (
		state OrderState
		found bool
	)
	if err := c.loop.Call(ctx, func() {
		var o order.Order
		if o, found = c.store.Get(id); found {
			state = c.orderState(o)
		}
	}); err != nil {
		return OrderState{}, err
	}
	if !found {
		return OrderState{}, ErrNotFound
	}
	return state, nil
}

func (c *Console) Subscribe(id string) <-chan Change {
	return c.hub.Subscribe(id)
}

func (c *Console) Unsubscribe(id string) {
	c.hub.Unsubscribe(id)
}

// Now is the console clock.
func (c *Console) Now() time.Time {
	return c.clock.Now()
}

func (c *Console) orderState(o order.Order) OrderState {
	remaining, running := c.timers.Remaining(o.ID)
	return OrderState{
		Order:      o,
		Remaining:  remaining,
		HasTimer:   running,
		Optimistic: c.store.Optimistic(o.ID),
		Actions:    LegalTransitions(o),
	}
}
