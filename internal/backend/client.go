package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultRetryBase   = 250 * time.Millisecond
)

// envelope is the {success, data, error} wrapper every backend call returns.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

func (e envelope) message() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil {
		return obj.Message
	}
	return strings.Trim(string(e.Error), `"`)
}

// Client talks to the restaurant backend command surface.
type Client struct {
	baseURL     string
	http        *http.Client
	maxAttempts int
	retryBase   time.Duration
	logger      apt.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets the attempt bound and the first backoff step. Each retry
// doubles the previous wait.
func WithRetry(maxAttempts int, base time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

func WithLogger(logger apt.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		logger:      apt.NewNoopLogger(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call runs one logical request with the retry policy. The same idempotency
// key is sent on every attempt.
func (c *Client) call(ctx context.Context, op, method, path string, body, dest interface{}) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}

	key := uuid.NewString()
	wait := c.retryBase

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.once(ctx, op, method, path, key, body, dest)
		if err == nil || !IsTransport(err) {
			return err
		}
		if attempt == c.maxAttempts {
			break
		}

		c.logger.Info("backend call failed, retrying", "op", op, "attempt", attempt, "retry_in", wait, "error", err)
		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return &TransportError{Op: op, Err: sleepErr}
		}
		wait *= 2
	}

	c.logger.Error("backend call failed", "op", op, "attempts", c.maxAttempts, "error", err)
	return err
}

func (c *Client) once(ctx context.Context, op, method, path, key string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &TransportError{Op: op, Status: resp.StatusCode}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &RejectedError{Op: op, Status: resp.StatusCode, Message: rejectedMessage(resp.StatusCode, "")}
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return &RejectedError{Op: op, Status: resp.StatusCode, Message: rejectedMessage(resp.StatusCode, env.message())}
	}

	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
