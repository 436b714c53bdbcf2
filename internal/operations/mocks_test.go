package operations

import (
	"context"
	"html/template"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/orderdesk/internal/backend"
	"github.com/appetiteclub/orderdesk/internal/console"
)

// testRenderer parses the embedded templates as one set.
type testRenderer struct {
	tmpl *template.Template
}

func newTestRenderer(t *testing.T) *testRenderer {
	t.Helper()
	tmpl, err := template.ParseFS(Assets, "assets/templates/*.html")
	if err != nil {
		t.Fatalf("cannot parse templates: %v", err)
	}
	return &testRenderer{tmpl: tmpl}
}

func (r *testRenderer) Render(w io.Writer, name string, data interface{}) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

type dispatchCall struct {
	Action console.Action
	ID     int64
	Input  console.Input
}

// MockConsole implements Console for testing
type MockConsole struct {
	SnapshotFunc func(ctx context.Context) (console.Snapshot, error)
	OrderFunc    func(ctx context.Context, id int64) (console.OrderState, error)
	DispatchFunc func(ctx context.Context, a console.Action, id int64, in console.Input) error

	Hub *console.Hub
	now time.Time

	mu         sync.Mutex
	dispatched []dispatchCall
}

func NewMockConsole(now time.Time) *MockConsole {
	return &MockConsole{Hub: console.NewHub(), now: now}
}

func (m *MockConsole) Snapshot(ctx context.Context) (console.Snapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx)
	}
	return console.Snapshot{Now: m.now}, nil
}

func (m *MockConsole) Order(ctx context.Context, id int64) (console.OrderState, error) {
	if m.OrderFunc != nil {
		return m.OrderFunc(ctx, id)
	}
	return console.OrderState{}, console.ErrNotFound
}

func (m *MockConsole) Dispatch(ctx context.Context, a console.Action, id int64, in console.Input) error {
	m.mu.Lock()
	m.dispatched = append(m.dispatched, dispatchCall{Action: a, ID: id, Input: in})
	m.mu.Unlock()
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, a, id, in)
	}
	return nil
}

func (m *MockConsole) Dispatched() []dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dispatchCall(nil), m.dispatched...)
}

func (m *MockConsole) Subscribe(id string) <-chan console.Change {
	return m.Hub.Subscribe(id)
}

func (m *MockConsole) Unsubscribe(id string) {
	m.Hub.Unsubscribe(id)
}

func (m *MockConsole) Now() time.Time {
	return m.now
}

// MockArchive implements Archive for testing
type MockArchive struct {
	ListArchivedFunc func(ctx context.Context, q backend.ArchiveQuery) (*backend.ArchivePage, error)
}

func (m *MockArchive) ListArchived(ctx context.Context, q backend.ArchiveQuery) (*backend.ArchivePage, error) {
	if m.ListArchivedFunc != nil {
		return m.ListArchivedFunc(ctx, q)
	}
	return &backend.ArchivePage{}, nil
}

// MockToasts implements Toasts for testing
type MockToasts struct {
	Toasts []console.Toast
}

func (m *MockToasts) Active() []console.Toast {
	return m.Toasts
}
