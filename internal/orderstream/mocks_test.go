package orderstream

import (
	"context"
	"io"
	"sync"

	"github.com/appetiteclub/orderdesk/pkg/event"
)

// MockDialer implements Dialer for testing
type MockDialer struct {
	DialFunc func(ctx context.Context) (Session, error)
}

func (m *MockDialer) Dial(ctx context.Context) (Session, error) {
	if m.DialFunc != nil {
		return m.DialFunc(ctx)
	}
	return nil, io.ErrUnexpectedEOF
}

// MockSession replays events pushed on Events. Closing End makes Recv
// return EndErr. A send on Lags makes Recv return ErrLagged once.
type MockSession struct {
	Events chan event.Event
	Lags   chan struct{}
	End    chan struct{}
	EndErr error

	closeOnce sync.Once
	closed    chan struct{}
}

func NewMockSession() *MockSession {
	return &MockSession{
		Events: make(chan event.Event, 16),
		Lags:   make(chan struct{}),
		End:    make(chan struct{}),
		EndErr: io.EOF,
		closed: make(chan struct{}),
	}
}

func (m *MockSession) Recv(ctx context.Context) (event.Event, error) {
	select {
	case evt := <-m.Events:
		return evt, nil
	case <-m.Lags:
		return event.Event{}, ErrLagged
	case <-m.End:
		return event.Event{}, m.EndErr
	case <-ctx.Done():
		return event.Event{}, ctx.Err()
	}
}

func (m *MockSession) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
