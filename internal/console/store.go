package console

import (
	"sort"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

// Counts are the header counters. Preparing includes CONFIRMED and PREPARING.
type Counts struct {
	Pending   int
	Preparing int
	Ready     int
}

// Store holds the active orders. It is only touched from the Loop.
//
// bases keeps the last server view of an order that was patched
// optimistically, so a contradicting push can discard the local guess.
type Store struct {
	orders   map[int64]order.Order
	bases    map[int64]order.Order
	onChange func()
}

func NewStore(onChange func()) *Store {
	if onChange == nil {
		onChange = func() {}
	}
	return &Store{
		orders:   make(map[int64]order.Order),
		bases:    make(map[int64]order.Order),
		onChange: onChange,
	}
}

// Upsert adopts the order verbatim. Terminal orders are removed instead.
func (s *Store) Upsert(o order.Order) {
	delete(s.bases, o.ID)
	if o.Status.Terminal() {
		delete(s.orders, o.ID)
	} else {
		s.orders[o.ID] = o.Clone()
	}
	s.onChange()
}

// Remove is idempotent. It reports whether the order was present.
func (s *Store) Remove(id int64) bool {
	_, ok := s.orders[id]
	delete(s.orders, id)
	delete(s.bases, id)
	if ok {
		s.onChange()
	}
	return ok
}

func (s *Store) Has(id int64) bool {
	_, ok := s.orders[id]
	return ok
}

func (s *Store) Get(id int64) (order.Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return o.Clone(), true
}

// Patch merges p into the stored order. It reports false for unknown ids.
func (s *Store) Patch(p order.Patch) bool {
	cur, ok := s.orders[p.ID]
	if !ok {
		return false
	}
	next := cur.Clone()
	p.Apply(&next)
	s.put(next)
	s.onChange()
	return true
}

// PatchOptimistic is Patch that remembers the pre-patch server view.
func (s *Store) PatchOptimistic(p order.Patch) bool {
	cur, ok := s.orders[p.ID]
	if !ok {
		return false
	}
	if _, held := s.bases[p.ID]; !held {
		s.bases[p.ID] = cur.Clone()
	}
	return s.Patch(p)
}

// ApplyServer merges a pushed partial update. A push that agrees with the
// optimistic status confirms it; any other push restores the server view
// first and then applies the update.
func (s *Store) ApplyServer(p order.Patch) bool {
	cur, ok := s.orders[p.ID]
	if !ok {
		return false
	}

	next := cur.Clone()
	if base, held := s.bases[p.ID]; held {
		delete(s.bases, p.ID)
		if p.Status == nil || p.Status.Canonical() != cur.Status.Canonical() {
			next = base.Clone()
		}
	}
	p.Apply(&next)
	s.put(next)
	s.onChange()
	return true
}

// Optimistic reports whether the order carries an unconfirmed local change.
func (s *Store) Optimistic(id int64) bool {
	_, ok := s.bases[id]
	return ok
}

// Replace swaps the whole collection for an authoritative list.
func (s *Store) Replace(orders []order.Order) {
	s.orders = make(map[int64]order.Order, len(orders))
	s.bases = make(map[int64]order.Order)
	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		s.orders[o.ID] = o.Clone()
	}
	s.onChange()
}

// All returns the orders in display order.
func (s *Store) All() []order.Order {
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func (s *Store) Len() int {
	return len(s.orders)
}

func (s *Store) Counts() Counts {
	var c Counts
	for _, o := range s.orders {
		switch o.Status.Canonical() {
		case orderstatus.Pending:
			c.Pending++
		case orderstatus.Confirmed:
			c.Preparing++
		case orderstatus.Ready:
			c.Ready++
		}
	}
	return c
}

func (s *Store) put(o order.Order) {
	if o.Status.Terminal() {
		delete(s.orders, o.ID)
		delete(s.bases, o.ID)
		return
	}
	s.orders[o.ID] = o
}

// less sorts by status rank, then ETA (set before unset), then creation
// time, then id.
func less(a, b order.Order) bool {
	if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.EstimatedTime != nil && b.EstimatedTime == nil:
		return true
	case a.EstimatedTime == nil && b.EstimatedTime != nil:
		return false
	case a.EstimatedTime != nil && !a.EstimatedTime.Equal(*b.EstimatedTime):
		return a.EstimatedTime.Before(*b.EstimatedTime)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
