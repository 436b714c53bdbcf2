package operations

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderdesk/internal/console"
	"github.com/google/uuid"
)

const (
	keepaliveEvery = 30 * time.Second
	elapsedEvery   = time.Minute
)

// SSEHandler streams console changes to browsers as rendered fragments.
type SSEHandler struct {
	console   Console
	render    renderer
	logger    apt.Logger
	keepalive time.Duration
	// elapsed re-renders the cards so "n perce érkezett" keeps counting.
	elapsed   time.Duration
}

func NewSSEHandler(c Console, r renderer, logger apt.Logger) *SSEHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SSEHandler{console: c, render: r, logger: logger, keepalive: keepaliveEvery, elapsed: elapsedEvery}
}

type timerPayload struct {
	OrderID int64  `json:"orderId"`
	Text    string `json:"text"`
	Class   string `json:"class"`
}

type toastPayload struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	Expired bool   `json:"expired"`
}

type flashPayload struct {
	OrderID int64  `json:"orderId"`
	Text    string `json:"text"`
}

type dialogPayload struct {
	OrderID int64 `json:"orderId"`
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	h.logger.Info("new SSE connection", "subscriber_id", subscriberID)

	changes := h.console.Subscribe(subscriberID)
	defer h.console.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	elapsed := time.NewTicker(h.elapsed)
	defer elapsed.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case <-elapsed.C:
			if err := h.refreshElapsed(w, r); err != nil {
				h.logger.Error("failed to refresh elapsed times", "error", err)
			}

		case c, ok := <-changes:
			if !ok {
				h.logger.Info("console change channel closed", "subscriber_id", subscriberID)
				return
			}
			if err := h.send(w, r, c); err != nil {
				h.logger.Error("failed to send change", "error", err, "kind", c.Kind)
			}
		}
	}
}

func (h *SSEHandler) send(w http.ResponseWriter, r *http.Request, c console.Change) error {
	switch c.Kind {
	case console.ChangeOrders:
		snap, err := h.console.Snapshot(r.Context())
		if err != nil {
			return err
		}
		return h.sendOrders(w, snap)

	case console.ChangeConnection:
		html, err := renderString(h.render, "connection.html", buildConnection(c.State))
		if err != nil {
			return err
		}
		sendSSEEvent(w, "connection", html)

	case console.ChangeTimer:
		text, class := remainingText(c.Remaining)
		return sendJSON(w, "timer", timerPayload{OrderID: c.OrderID, Text: text, Class: class})

	case console.ChangeToast:
		if c.Toast == nil {
			return nil
		}
		t := c.Toast
		return sendJSON(w, "toast", toastPayload{ID: t.ID, Kind: string(t.Kind), Text: t.Text, Expired: t.Expired})

	case console.ChangeFlash:
		return sendJSON(w, "flash", flashPayload{OrderID: c.OrderID, Text: c.Text})

	case console.ChangeDialogClose:
		return sendJSON(w, "dialog-close", dialogPayload{OrderID: c.OrderID})
	}
	return nil
}

// refreshElapsed resends the cards while pending orders show elapsed time.
func (h *SSEHandler) refreshElapsed(w http.ResponseWriter, r *http.Request) error {
	snap, err := h.console.Snapshot(r.Context())
	if err != nil {
		return err
	}
	if snap.Counts.Pending == 0 {
		return nil
	}
	return h.sendOrders(w, snap)
}

func (h *SSEHandler) sendOrders(w http.ResponseWriter, snap console.Snapshot) error {
	cards, err := renderString(h.render, "cards.html", cardsOf(snap))
	if err != nil {
		return err
	}
	counters, err := renderString(h.render, "counters.html", buildCounters(snap.Counts))
	if err != nil {
		return err
	}
	sendSSEEvent(w, "orders", cards+"\n"+counters)
	return nil
}

func sendJSON(w http.ResponseWriter, eventType string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sendSSEEvent(w, eventType, string(data))
	return nil
}

// sendSSEEvent writes one event, prefixing every data line.
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
