package console

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

// ListFunc fetches the authoritative active order list.
type ListFunc func(ctx context.Context) ([]order.Order, error)

// Reconciler replaces the store with the backend list. At most one refresh
// is in flight; requests arriving meanwhile collapse into one rerun and
// the stale result is dropped. A result is also dropped when an operator
// command started or finished while it was loading, or is still running:
// the command's own follow-up refresh supersedes it.
type Reconciler struct {
	loop   *Loop
	clock  Clock
	list   ListFunc
	apply  func([]order.Order)
	logger apt.Logger
	cfg    Config

	inFlight bool
	pending  bool
	stopped  bool
	runs     int

	commands int
	epoch    uint64
	started  uint64
	retry    time.Duration

	delayed Stopper
	poll    Stopper
	polling bool

	burst []time.Time
	quiet Stopper
	qgen  uint64
}

func NewReconciler(loop *Loop, clock Clock, list ListFunc, apply func([]order.Order), cfg Config, logger apt.Logger) *Reconciler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Reconciler{
		loop:   loop,
		clock:  clock,
		list:   list,
		apply:  apply,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

// Request runs a refresh now, or marks one pending if a refresh is in flight.
func (r *Reconciler) Request() {
	if r.stopped {
		return
	}
	if r.inFlight {
		r.pending = true
		return
	}
	r.run()
}

func (r *Reconciler) run() {
	r.inFlight = true
	r.runs++
	r.started = r.epoch
	r.loop.Async(func(ctx context.Context) func() {
		orders, err := r.list(ctx)
		return func() { r.finish(orders, err) }
	})
}

func (r *Reconciler) finish(orders []order.Order, err error) {
	r.inFlight = false
	if r.stopped {
		return
	}
	if r.pending {
		r.pending = false
		r.logger.Debug("dropping superseded reconciliation result")
		r.run()
		return
	}
	if err != nil {
		r.logger.Error("reconciliation failed", "error", err)
		r.retryLater()
		return
	}
	r.retry = 0
	if r.commands > 0 || r.started != r.epoch {
		r.logger.Debug("dropping reconciliation result overtaken by a command", "commands", r.commands)
		return
	}
	r.apply(orders)
	r.logger.Debug("store reconciled", "orders", len(orders))
}

// retryLater schedules another attempt, doubling the delay up to PollEvery.
func (r *Reconciler) retryLater() {
	if r.retry == 0 {
		r.retry = r.cfg.AfterCommand
	} else {
		r.retry *= 2
	}
	if r.retry > r.cfg.PollEvery {
		r.retry = r.cfg.PollEvery
	}
	r.Schedule(r.retry)
}

// BeginCommand marks a backend command as outstanding. Refresh results
// are not applied until every command has ended.
func (r *Reconciler) BeginCommand() {
	r.commands++
	r.epoch++
}

// EndCommand must follow BeginCommand once the command has answered.
func (r *Reconciler) EndCommand() {
	if r.commands > 0 {
		r.commands--
	}
	r.epoch++
}

// Schedule requests a refresh after d. A refresh already scheduled is kept.
func (r *Reconciler) Schedule(d time.Duration) {
	if r.stopped || r.delayed != nil {
		return
	}
	r.delayed = r.clock.AfterFunc(d, func() {
		r.loop.Post(func() {
			r.delayed = nil
			r.Request()
		})
	})
}

// AfterCommand schedules the follow-up refresh of a successful command.
func (r *Reconciler) AfterCommand() {
	r.Schedule(r.cfg.AfterCommand)
}

// SetConnection polls while the event channel is down and refreshes once
// it comes back.
func (r *Reconciler) SetConnection(state order.ConnState) {
	if r.stopped {
		return
	}
	if state == order.Connected {
		wasPolling := r.polling
		r.stopPolling()
		if wasPolling {
			r.Request()
		}
		return
	}
	if !r.polling {
		r.polling = true
		r.schedulePoll()
	}
}

func (r *Reconciler) schedulePoll() {
	r.poll = r.clock.AfterFunc(r.cfg.PollEvery, func() {
		r.loop.Post(func() {
			if !r.polling || r.stopped {
				return
			}
			r.Request()
			r.schedulePoll()
		})
	})
}

func (r *Reconciler) stopPolling() {
	r.polling = false
	if r.poll != nil {
		r.poll.Stop()
		r.poll = nil
	}
}

// Observe feeds the burst guard with one pushed event. It reports whether
// the stream is currently in a burst.
func (r *Reconciler) Observe(at time.Time) bool {
	cutoff := at.Add(-r.cfg.BurstWindow)
	kept := r.burst[:0]
	for _, t := range r.burst {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.burst = append(kept, at)

	if len(r.burst) <= r.cfg.BurstThreshold {
		return r.quiet != nil
	}
	r.Defer()
	return true
}

// Defer requests one refresh once the stream has been quiet for a burst
// window. Each call pushes the deadline back.
func (r *Reconciler) Defer() {
	if r.stopped {
		return
	}
	if r.quiet != nil {
		r.quiet.Stop()
	}
	r.qgen++
	gen := r.qgen
	r.quiet = r.clock.AfterFunc(r.cfg.BurstWindow, func() {
		r.loop.Post(func() {
			if gen != r.qgen {
				return
			}
			r.quiet = nil
			r.burst = r.burst[:0]
			r.Request()
		})
	})
}

func (r *Reconciler) Polling() bool {
	return r.polling
}

// Runs counts started refreshes.
func (r *Reconciler) Runs() int {
	return r.runs
}

// Stop cancels every scheduled refresh. Results in flight are discarded.
func (r *Reconciler) Stop() {
	r.stopped = true
	r.stopPolling()
	if r.delayed != nil {
		r.delayed.Stop()
		r.delayed = nil
	}
	if r.quiet != nil {
		r.quiet.Stop()
		r.quiet = nil
	}
}
