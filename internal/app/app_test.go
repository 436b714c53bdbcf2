package app

import (
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/internal/orderstream"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *apt.Config
		logger  apt.Logger
		wantErr bool
	}{
		{name: "withConfigAndLogger", config: apt.NewConfig(), logger: apt.NewNoopLogger()},
		{name: "withNilLogger", config: apt.NewConfig(), logger: nil},
		{name: "withNilConfig", config: nil, logger: apt.NewNoopLogger(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.config, tt.logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && a.logger == nil {
				t.Error("logger should default to noop")
			}
		})
	}
}

func TestAppDefaults(t *testing.T) {
	a, err := New(apt.NewConfig(), apt.NewNoopLogger())
	if err != nil {
		t.Fatal(err)
	}

	if got := a.duration("reconcile.after_command", time.Second); got != time.Second {
		t.Errorf("duration default = %v", got)
	}
	if got := a.integer("burst.threshold", 20); got != 20 {
		t.Errorf("integer default = %d", got)
	}

	d, err := a.dialer()
	if err != nil {
		t.Fatalf("dialer() error = %v", err)
	}
	sse, ok := d.(*orderstream.SSEDialer)
	if !ok {
		t.Fatalf("dialer() = %T, want *orderstream.SSEDialer", d)
	}
	if sse.URL != "http://localhost:8080/events" {
		t.Errorf("URL = %q", sse.URL)
	}
}

func TestAppRunWithoutInitialize(t *testing.T) {
	a, _ := New(apt.NewConfig(), apt.NewNoopLogger())
	if err := a.Run(t.Context()); err == nil {
		t.Error("Run() before Initialize() should fail")
	}
}
