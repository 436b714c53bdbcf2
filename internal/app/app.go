package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"
	aptemplate "github.com/appetiteclub/apt/template"
	"github.com/appetiteclub/orderdesk/internal/backend"
	"github.com/appetiteclub/orderdesk/internal/console"
	"github.com/appetiteclub/orderdesk/internal/notify"
	"github.com/appetiteclub/orderdesk/internal/operations"
	"github.com/appetiteclub/orderdesk/internal/orderstream"
	"github.com/appetiteclub/orderdesk/pkg/event"
)

const (
	AppName    = "orderdesk"
	AppVersion = "0.1.0"
)

// App encapsulates the order console service.
type App struct {
	config *apt.Config
	logger apt.Logger
	micro  *apt.Micro
}

func New(config *apt.Config, logger apt.Logger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("%s: config is required", AppName)
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize builds every component and the micro service that runs them.
func (a *App) Initialize(ctx context.Context) error {
	backendURL := a.config.GetStringOrDef("backend.url", "http://localhost:8080")
	backendClient := backend.NewClient(backendURL,
		backend.WithTimeout(a.duration("backend.timeout", 10*time.Second)),
		backend.WithRetry(a.integer("backend.retry.max", 3), a.duration("backend.retry.base", 250*time.Millisecond)),
		backend.WithLogger(a.logger),
	)

	dialer, err := a.dialer()
	if err != nil {
		return err
	}
	streamClient := orderstream.NewClient(dialer, a.logger,
		orderstream.WithBackoff(
			a.duration("events.backoff.min", time.Second),
			a.duration("events.backoff.max", 30*time.Second),
		),
	)

	hub := console.NewHub()

	notifier := notify.New(hub,
		notify.WithChimer(notify.NewBellChimer(os.Stdout)),
		notify.WithTTL(a.duration("notify.toast_ttl", 5*time.Second)),
		notify.WithLogger(a.logger),
	)

	orders := console.New(backendClient, streamClient, a.logger,
		console.WithHub(hub),
		console.WithNotifier(notifier),
		console.WithConfig(console.Config{
			AfterCommand:   a.duration("reconcile.after_command", time.Second),
			PollEvery:      a.duration("reconcile.poll", 10*time.Second),
			BurstThreshold: a.integer("burst.threshold", 20),
			BurstWindow:    a.duration("burst.window", 2*time.Second),
		}),
	)

	tmplMgr := aptemplate.NewManager(operations.Assets, aptemplate.WithLogger(a.logger))
	handler := operations.NewHandler(tmplMgr, orders, backendClient, notifier, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	// Start order matters: the console subscribes to a running stream.
	lifecycles := []interface{}{
		tmplMgr,
		streamClient,
		orders,
		apt.LifecycleHooks{OnStop: notifier.Stop},
	}

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	if a.micro == nil {
		return fmt.Errorf("%s: not initialized", AppName)
	}
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

func (a *App) dialer() (orderstream.Dialer, error) {
	transport := strings.ToLower(a.config.GetStringOrDef("events.transport", "sse"))
	switch transport {
	case "sse":
		url := a.config.GetStringOrDef("events.url", "http://localhost:8080/events")
		a.logger.Info("order events over SSE", "url", url)
		return orderstream.NewSSEDialer(url), nil
	case "nats":
		url := a.config.GetStringOrDef("nats.url", "nats://localhost:4222")
		subject := a.config.GetStringOrDef("events.nats.subject", event.OrdersTopic)
		a.logger.Info("order events over NATS", "url", url, "subject", subject)
		return orderstream.NewNATSDialer(url, subject), nil
	}
	return nil, fmt.Errorf("unknown events.transport %q", transport)
}

func (a *App) duration(key string, def time.Duration) time.Duration {
	raw, ok := a.config.GetString(key)
	if !ok || raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		a.logger.Info("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func (a *App) integer(key string, def int) int {
	raw, ok := a.config.GetString(key)
	if !ok || raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		a.logger.Info("invalid number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}
