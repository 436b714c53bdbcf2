package console

import (
	"reflect"
	"testing"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newOrder(id int64, number string, status orderstatus.Status, typ order.Type, created time.Time) order.Order {
	return order.Order{
		ID:          id,
		OrderNumber: number,
		Status:      status,
		OrderType:   typ,
		CreatedAt:   created,
	}
}

func ids(orders []order.Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestStoreUpsertTerminalRemoves(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))

	tests := []struct {
		name   string
		status orderstatus.Status
	}{
		{name: "delivered", status: orderstatus.Delivered},
		{name: "cancelled", status: orderstatus.Cancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))
			s.Upsert(newOrder(1, "A-1", tt.status, order.TypePickup, t0))
			if s.Has(1) {
				t.Errorf("store still holds order in %s", tt.status)
			}
		})
	}

	s.Upsert(newOrder(2, "A-2", orderstatus.Delivered, order.TypePickup, t0))
	if s.Has(2) {
		t.Error("terminal order inserted")
	}
}

func TestStoreSortOrder(t *testing.T) {
	eta := func(m int) *time.Time { return order.TimePtr(t0.Add(time.Duration(m) * time.Minute)) }

	s := NewStore(nil)
	ready := newOrder(1, "A-1", orderstatus.Ready, order.TypePickup, t0)
	late := newOrder(2, "A-2", orderstatus.Confirmed, order.TypePickup, t0)
	late.EstimatedTime = eta(30)
	soon := newOrder(3, "A-3", orderstatus.Preparing, order.TypePickup, t0.Add(time.Minute))
	soon.EstimatedTime = eta(10)
	noETA := newOrder(4, "A-4", orderstatus.Confirmed, order.TypePickup, t0)
	pendingOld := newOrder(6, "A-6", orderstatus.Pending, order.TypePickup, t0)
	pendingTie := newOrder(5, "A-5", orderstatus.Pending, order.TypePickup, t0)
	outForDelivery := newOrder(7, "A-7", orderstatus.OutForDelivery, order.TypeDelivery, t0)

	for _, o := range []order.Order{ready, late, soon, noETA, pendingOld, pendingTie, outForDelivery} {
		s.Upsert(o)
	}

	want := []int64{5, 6, 3, 2, 4, 1, 7}
	if got := ids(s.All()); !reflect.DeepEqual(got, want) {
		t.Errorf("All() order = %v, want %v", got, want)
	}
}

func TestStoreCounts(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))
	s.Upsert(newOrder(2, "A-2", orderstatus.Confirmed, order.TypePickup, t0))
	s.Upsert(newOrder(3, "A-3", orderstatus.Preparing, order.TypePickup, t0))
	s.Upsert(newOrder(4, "A-4", orderstatus.Ready, order.TypePickup, t0))
	s.Upsert(newOrder(5, "A-5", orderstatus.OutForDelivery, order.TypeDelivery, t0))

	want := Counts{Pending: 1, Preparing: 2, Ready: 1}
	if got := s.Counts(); got != want {
		t.Errorf("Counts() = %+v, want %+v", got, want)
	}
}

func TestStoreOneChangePerMutation(t *testing.T) {
	changes := 0
	s := NewStore(func() { changes++ })

	s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))
	s.Patch(order.StatusPatch(1, orderstatus.Confirmed))
	s.Replace([]order.Order{newOrder(2, "A-2", orderstatus.Pending, order.TypePickup, t0)})
	s.Remove(2)
	s.Remove(2)

	if changes != 4 {
		t.Errorf("changes = %d, want 4", changes)
	}
}

func TestStoreApplyServer(t *testing.T) {
	accepted := order.TimePtr(t0.Add(time.Second))
	eta := order.TimePtr(t0.Add(16 * time.Minute))

	tests := []struct {
		name       string
		push       orderstatus.Status
		wantStatus orderstatus.Status
		wantETA    bool
	}{
		{name: "agreeingPushConfirms", push: orderstatus.Confirmed, wantStatus: orderstatus.Confirmed, wantETA: true},
		{name: "preparingCountsAsConfirmed", push: orderstatus.Preparing, wantStatus: orderstatus.Preparing, wantETA: true},
		{name: "contradictingPushRestores", push: orderstatus.Pending, wantStatus: orderstatus.Pending, wantETA: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))

			p := order.StatusPatch(1, orderstatus.Confirmed)
			p.AcceptedAt = accepted
			p.EstimatedTime = eta
			s.PatchOptimistic(p)
			if !s.Optimistic(1) {
				t.Fatal("optimistic base not recorded")
			}

			s.ApplyServer(order.StatusPatch(1, tt.push))
			got, _ := s.Get(1)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if (got.EstimatedTime != nil) != tt.wantETA {
				t.Errorf("EstimatedTime = %v, wantETA %v", got.EstimatedTime, tt.wantETA)
			}
			if s.Optimistic(1) {
				t.Error("optimistic base should be cleared by a push")
			}
		})
	}
}

func TestStoreApplyServerIdempotent(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(newOrder(1, "A-1", orderstatus.Confirmed, order.TypePickup, t0))

	p := order.StatusPatch(1, orderstatus.Ready)
	p.ReadyAt = order.TimePtr(t0.Add(5 * time.Minute))

	s.ApplyServer(p)
	once := s.All()
	s.ApplyServer(p)
	twice := s.All()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("applying twice changed the store: %+v vs %+v", once, twice)
	}
}

func TestStoreReplaceDropsTerminalAndBases(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0))
	s.PatchOptimistic(order.StatusPatch(1, orderstatus.Confirmed))

	s.Replace([]order.Order{
		newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0),
		newOrder(2, "A-2", orderstatus.Cancelled, order.TypePickup, t0),
	})

	if s.Len() != 1 || s.Has(2) {
		t.Errorf("store = %v, want only order 1", ids(s.All()))
	}
	if s.Optimistic(1) {
		t.Error("Replace should clear optimistic bases")
	}
}

func TestStorePatchToTerminalRemoves(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(newOrder(1, "A-1", orderstatus.Ready, order.TypePickup, t0))

	s.PatchOptimistic(order.StatusPatch(1, orderstatus.Delivered))
	if s.Has(1) {
		t.Error("order patched to DELIVERED is still stored")
	}
	if s.Optimistic(1) {
		t.Error("base kept for removed order")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	o := newOrder(1, "A-1", orderstatus.Pending, order.TypePickup, t0)
	o.Items = []order.LineItem{{Name: "Burger", Quantity: 1}}
	s.Upsert(o)

	got, _ := s.Get(1)
	got.Items[0].Name = "changed"

	again, _ := s.Get(1)
	if again.Items[0].Name != "Burger" {
		t.Error("Get() shares item slice with the store")
	}
}
