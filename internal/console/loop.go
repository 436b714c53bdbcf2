package console

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
)

// Loop runs posted closures one at a time, in posting order, on a single
// goroutine. All console state is owned by it.
type Loop struct {
	logger apt.Logger

	mu    sync.Mutex
	queue []func()
	ctx   context.Context

	wake    chan struct{}
	done    chan struct{}
	pending atomic.Int64
	running atomic.Bool
}

func NewLoop(logger apt.Logger) *Loop {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Loop{
		logger: logger,
		ctx:    context.Background(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn. It never blocks.
func (l *Loop) Post(fn func()) {
	l.pending.Add(1)
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Async runs work off the loop. The continuation it returns, if any, is
// posted back onto the loop. work must not touch console state.
func (l *Loop) Async(work func(ctx context.Context) func()) {
	l.pending.Add(1)
	ctx := l.context()
	go func() {
		defer l.pending.Add(-1)
		if next := work(ctx); next != nil {
			l.Post(next)
		}
	}()
}

// Call posts fn and waits for it to run.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})

	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle waits until the queue is empty and no async work is outstanding.
func (l *Loop) Idle(ctx context.Context) error {
	for {
		if l.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrStopped
		case <-time.After(time.Millisecond):
		}
	}
}

// Run drains the queue until ctx is cancelled. It may be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("console loop already running")
	}
	defer close(l.done)

	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return nil
			}
			l.run(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) run(fn func()) {
	defer l.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("console loop callback panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) context() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}
