package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, opts...)
	c.sleep = noSleep
	return c
}

func TestClientNilOrUnconfigured(t *testing.T) {
	var nilClient *Client
	if _, err := nilClient.ListActive(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ListActive() on nil client error = %v, want ErrNotConfigured", err)
	}

	c := NewClient("")
	if err := c.Cancel(context.Background(), 1); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Cancel() without base url error = %v, want ErrNotConfigured", err)
	}
}

func TestClientListActive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/orders/active" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":[
			{"id":1,"orderNumber":"A-1","status":"PENDING","orderType":"PICKUP","total":"10.00","createdAt":"2026-10-19T10:00:00Z"},
			{"id":2,"orderNumber":"A-2","status":"CONFIRMED","orderType":"DELIVERY","total":12.5,"createdAt":"2026-10-19T10:05:00Z"}
		]}`))
	})

	orders, err := c.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("ListActive() count = %d, want 2", len(orders))
	}
	if orders[0].OrderNumber != "A-1" {
		t.Errorf("OrderNumber = %q, want %q", orders[0].OrderNumber, "A-1")
	}
	if got := orders[1].Total.StringFixed(2); got != "12.50" {
		t.Errorf("Total = %s, want 12.50", got)
	}
}

func TestClientAcceptSendsEstimatedMinutes(t *testing.T) {
	keys := make(chan string, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/orders/7/accept" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		keys <- r.Header.Get("Idempotency-Key")

		var body map[string]int
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body["estimatedMinutes"] != 15 {
			t.Errorf("estimatedMinutes = %d, want 15", body["estimatedMinutes"])
		}
		w.Write([]byte(`{"success":true}`))
	})

	if err := c.Accept(context.Background(), 7, 15); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if gotKey := <-keys; gotKey == "" {
		t.Error("Idempotency-Key header not sent")
	}
}

func TestClientCommandPaths(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
		path string
	}{
		{name: "cancel", call: func(c *Client) error { return c.Cancel(context.Background(), 3) }, path: "/orders/3/cancel"},
		{name: "ready", call: func(c *Client) error { return c.MarkReady(context.Background(), 3) }, path: "/orders/3/ready"},
		{name: "delivery", call: func(c *Client) error { return c.MarkOutForDelivery(context.Background(), 3) }, path: "/orders/3/delivery"},
		{name: "complete", call: func(c *Client) error { return c.Complete(context.Background(), 3) }, path: "/orders/3/complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut {
					t.Errorf("method = %s, want PUT", r.Method)
				}
				if r.URL.Path != tt.path {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.path)
				}
				w.Write([]byte(`{"success":true}`))
			})
			if err := tt.call(c); err != nil {
				t.Errorf("call error = %v", err)
			}
		})
	}
}

func TestClientRejectedIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"success":false,"error":"Order already accepted"}`))
	})

	err := c.MarkReady(context.Background(), 3)
	if !IsRejected(err) {
		t.Fatalf("MarkReady() error = %v, want RejectedError", err)
	}
	if got := Reason(err); got != "Order already accepted" {
		t.Errorf("Reason() = %q, want backend message", got)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestClientRejectedErrorObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"error":{"message":"Invalid status"}}`))
	})

	err := c.Complete(context.Background(), 1)
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Complete() error = %v, want RejectedError", err)
	}
	if rejected.Message != "Invalid status" || rejected.Status != http.StatusConflict {
		t.Errorf("rejected = %+v", rejected)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		wantErr   bool
		wantCalls int32
	}{
		{name: "recoversOnSecondAttempt", failures: 1, wantErr: false, wantCalls: 2},
		{name: "exhaustsAttempts", failures: 5, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var mu sync.Mutex
			keys := map[string]bool{}
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				mu.Lock()
				keys[r.Header.Get("Idempotency-Key")] = true
				mu.Unlock()
				if n <= tt.failures {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.Write([]byte(`{"success":true}`))
			}, WithRetry(3, time.Millisecond))

			err := c.Cancel(context.Background(), 2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Cancel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !IsTransport(err) {
				t.Errorf("error = %v, want TransportError", err)
			}
			if n := atomic.LoadInt32(&calls); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
			mu.Lock()
			defer mu.Unlock()
			if len(keys) != 1 {
				t.Errorf("idempotency keys = %d, want 1 shared key", len(keys))
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithRetry(2, time.Millisecond))
	c.sleep = noSleep

	err := c.MarkReady(context.Background(), 1)
	if !IsTransport(err) {
		t.Fatalf("MarkReady() error = %v, want TransportError", err)
	}
	if got := Reason(err); got != "A szerver nem érhető el" {
		t.Errorf("Reason() = %q", got)
	}
}

func TestClientListArchived(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/orders/archived" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("period") != "week" || q.Get("page") != "2" || q.Get("limit") != "20" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"data":{"orders":[{"id":9,"orderNumber":"A-9","status":"DELIVERED"}],"pagination":{"page":2,"limit":20,"total":21,"pages":2}}}`))
	})

	page, err := c.ListArchived(context.Background(), ArchiveQuery{Period: PeriodWeek, Page: 2})
	if err != nil {
		t.Fatalf("ListArchived() error = %v", err)
	}
	if len(page.Orders) != 1 || page.Pagination.Pages != 2 || page.Pagination.Total != 21 {
		t.Errorf("page = %+v", page)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{in: "", want: PeriodToday},
		{in: "week", want: PeriodWeek},
		{in: " MONTH ", want: PeriodMonth},
		{in: "all", want: PeriodAll},
		{in: "year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
