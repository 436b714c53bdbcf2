package console

import (
	"math"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

const tickInterval = time.Minute

type countdown struct {
	eta       time.Time
	nextTick  time.Time
	remaining int
	handle    Stopper
	gen       uint64
}

// Timers keeps one countdown per accepted order with an ETA. Ticks are
// posted onto the Loop and only touch the table from there.
type Timers struct {
	clock  Clock
	post   func(func())
	onTick func(id int64, remaining int)

	active map[int64]*countdown
	gen    uint64
}

func NewTimers(clock Clock, post func(func()), onTick func(id int64, remaining int)) *Timers {
	if onTick == nil {
		onTick = func(int64, int) {}
	}
	return &Timers{
		clock:  clock,
		post:   post,
		onTick: onTick,
		active: make(map[int64]*countdown),
	}
}

func wantsTimer(o order.Order) bool {
	return o.Status.Canonical() == orderstatus.Confirmed && o.EstimatedTime != nil
}

// Sync starts, keeps or stops the countdown of o so it matches its status.
func (t *Timers) Sync(o order.Order) {
	if !wantsTimer(o) {
		t.Stop(o.ID)
		return
	}
	if cd, ok := t.active[o.ID]; ok && cd.eta.Equal(*o.EstimatedTime) {
		return
	}
	t.start(o.ID, *o.EstimatedTime)
}

// SyncAll aligns the table with a full order list.
func (t *Timers) SyncAll(orders []order.Order) {
	keep := make(map[int64]bool, len(orders))
	for _, o := range orders {
		keep[o.ID] = true
		t.Sync(o)
	}
	for id := range t.active {
		if !keep[id] {
			t.Stop(id)
		}
	}
}

func (t *Timers) Stop(id int64) {
	if cd, ok := t.active[id]; ok {
		cd.handle.Stop()
		delete(t.active, id)
	}
}

func (t *Timers) StopAll() {
	for id := range t.active {
		t.Stop(id)
	}
}

// Remaining returns the last computed minutes for id.
func (t *Timers) Remaining(id int64) (int, bool) {
	cd, ok := t.active[id]
	if !ok {
		return 0, false
	}
	return cd.remaining, true
}

func (t *Timers) Running(id int64) bool {
	_, ok := t.active[id]
	return ok
}

func (t *Timers) Len() int {
	return len(t.active)
}

func (t *Timers) start(id int64, eta time.Time) {
	t.Stop(id)
	t.gen++

	now := t.clock.Now()
	cd := &countdown{
		eta:       eta,
		nextTick:  now.Add(tickInterval),
		remaining: RemainingMinutes(eta, now),
		gen:       t.gen,
	}
	t.active[id] = cd
	t.schedule(id, cd)
	t.onTick(id, cd.remaining)
}

func (t *Timers) schedule(id int64, cd *countdown) {
	delay := cd.nextTick.Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}
	gen := cd.gen
	cd.handle = t.clock.AfterFunc(delay, func() {
		t.post(func() { t.tick(id, gen) })
	})
}

func (t *Timers) tick(id int64, gen uint64) {
	cd, ok := t.active[id]
	if !ok || cd.gen != gen {
		return
	}

	remaining := RemainingMinutes(cd.eta, cd.nextTick)
	cd.nextTick = cd.nextTick.Add(tickInterval)
	t.schedule(id, cd)

	if remaining != cd.remaining {
		cd.remaining = remaining
		t.onTick(id, remaining)
	}
}

// RemainingMinutes is floor((eta-now)/1m). Negative means overdue.
func RemainingMinutes(eta, now time.Time) int {
	return int(math.Floor(eta.Sub(now).Minutes()))
}
