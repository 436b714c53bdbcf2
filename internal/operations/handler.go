package operations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	aptemplate "github.com/appetiteclub/apt/template"
	"github.com/appetiteclub/orderdesk/internal/backend"
	"github.com/appetiteclub/orderdesk/internal/console"
	"github.com/go-chi/chi/v5"
)

// Console is the part of the order console the web surface uses. The
// handler never mutates orders directly.
type Console interface {
	Snapshot(ctx context.Context) (console.Snapshot, error)
	Order(ctx context.Context, id int64) (console.OrderState, error)
	Dispatch(ctx context.Context, a console.Action, id int64, in console.Input) error
	Subscribe(id string) <-chan console.Change
	Unsubscribe(id string)
	Now() time.Time
}

// Archive lists past orders straight from the backend.
type Archive interface {
	ListArchived(ctx context.Context, q backend.ArchiveQuery) (*backend.ArchivePage, error)
}

// Toasts exposes the toasts currently on screen.
type Toasts interface {
	Active() []console.Toast
}

type Handler struct {
	render  renderer
	console Console
	archive Archive
	toasts  Toasts
	sse     *SSEHandler
	logger  apt.Logger
	http    *telemetry.HTTP
}

func NewHandler(tmplMgr *aptemplate.Manager, c Console, archive Archive, toasts Toasts, logger apt.Logger) *Handler {
	return newHandler(managerRenderer{mgr: tmplMgr}, c, archive, toasts, logger)
}

func newHandler(r renderer, c Console, archive Archive, toasts Toasts, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	h := &Handler{
		render:  r,
		console: c,
		archive: archive,
		toasts:  toasts,
		logger:  logger,
		http:    telemetry.NewHTTP(),
	}
	h.sse = NewSSEHandler(c, r, logger)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Orders)
	r.Get("/events", h.sse.ServeHTTP)
	r.Get("/archive", h.Archive)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/cards", h.Cards)
		r.Get("/counters", h.Counters)
		r.Get("/{id}/modal", h.OrderModal)
		r.Get("/{id}/eta", h.ETAForm)
		r.Get("/{id}/eta/check", h.ETACheck)
		r.Get("/{id}/cancel", h.CancelPrompt)
		r.Post("/{id}/actions/{action}", h.Action)
	})
}

func (h *Handler) log() apt.Logger {
	return h.logger
}

func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if err := h.render.Render(w, name, data); err != nil {
		h.log().Error("error rendering template", "error", err, "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
}

// Orders renders the active list page.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Orders")
	defer finish()

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var toasts []console.Toast
	if h.toasts != nil {
		toasts = h.toasts.Active()
	}

	data := map[string]interface{}{
		"Title":      "Aktív rendelések",
		"Counters":   buildCounters(snap.Counts),
		"Connection": buildConnection(snap.Connection),
		"Cards":      cardsOf(snap),
		"Toasts":     buildToasts(toasts),
	}
	h.renderTemplate(w, "orders.html", data)
}

func (h *Handler) Cards(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Cards")
	defer finish()

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	noCache(w)
	h.renderTemplate(w, "cards.html", cardsOf(snap))
}

func (h *Handler) Counters(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Counters")
	defer finish()

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	noCache(w)
	h.renderTemplate(w, "counters.html", buildCounters(snap.Counts))
}

func (h *Handler) OrderModal(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.OrderModal")
	defer finish()

	st, ok := h.order(w, r)
	if !ok {
		return
	}
	noCache(w)
	h.renderTemplate(w, "modal.html", buildModal(st, h.console.Now()))
}

func (h *Handler) ETAForm(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.ETAForm")
	defer finish()

	st, ok := h.order(w, r)
	if !ok {
		return
	}
	noCache(w)
	h.renderTemplate(w, "eta.html", buildETA(st.Order, "", ""))
}

// ETACheck validates the custom minutes field as the operator types.
func (h *Handler) ETACheck(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.ETACheck")
	defer finish()

	st, ok := h.order(w, r)
	if !ok {
		return
	}

	minutes := r.URL.Query().Get("minutes")
	msg := ""
	if _, err := console.ParseETA(minutes); err != nil {
		msg = inputMessage(err)
	}
	noCache(w)
	h.renderTemplate(w, "eta_check.html", buildETA(st.Order, minutes, msg))
}

func (h *Handler) CancelPrompt(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.CancelPrompt")
	defer finish()

	st, ok := h.order(w, r)
	if !ok {
		return
	}
	noCache(w)
	h.renderTemplate(w, "cancel.html", cancelView{
		OrderID:     st.Order.ID,
		OrderNumber: st.Order.OrderNumber,
		Customer:    st.Order.CustomerName,
	})
}

// Action dispatches an operator action. The outcome reaches the page over
// the event stream, so success answers 204.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Action")
	defer finish()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	action, err := console.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	in := console.Input{Confirmed: isChecked(r.FormValue("confirm"))}
	minutes := r.FormValue("minutes")
	if action == console.ActionAccept {
		n, err := console.ParseETA(minutes)
		if err != nil {
			h.renderInputError(w, r, id, minutes, err)
			return
		}
		in.Minutes = n
	}

	err = h.console.Dispatch(r.Context(), action, id, in)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, console.ErrInvalidInput):
		h.renderInputError(w, r, id, minutes, err)
	case errors.Is(err, console.ErrConfirmationRequired):
		st, ok := h.order(w, r)
		if !ok {
			return
		}
		w.WriteHeader(http.StatusConflict)
		h.renderTemplate(w, "cancel.html", cancelView{OrderID: id, OrderNumber: st.Order.OrderNumber, Customer: st.Order.CustomerName})
	case errors.Is(err, console.ErrNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, console.ErrInvalidTransition):
		http.Error(w, "Action not allowed in the current status", http.StatusConflict)
	case errors.Is(err, console.ErrCommandInProgress):
		http.Error(w, "Another action for this order is in progress", http.StatusConflict)
	default:
		h.log().Error("cannot dispatch order action", "error", err, "action", action, "order_id", id)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	}
}

func (h *Handler) renderInputError(w http.ResponseWriter, r *http.Request, id int64, minutes string, err error) {
	st, ok := h.order(w, r)
	if !ok {
		return
	}
	w.WriteHeader(http.StatusUnprocessableEntity)
	h.renderTemplate(w, "eta.html", buildETA(st.Order, minutes, inputMessage(err)))
}

// Archive renders delivered and cancelled orders for a period.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.Archive")
	defer finish()

	q := r.URL.Query()
	view := archiveView{}
	period, err := backend.ParsePeriod(q.Get("period"))
	if err != nil {
		period = backend.PeriodToday
		view.Error = "Ismeretlen időszak, a mai rendelések látszanak"
	}
	pageNum, _ := strconv.Atoi(q.Get("page"))

	var page *backend.ArchivePage
	if h.archive != nil {
		page, err = h.archive.ListArchived(r.Context(), backend.ArchiveQuery{Period: period, Page: pageNum})
		if err != nil {
			h.log().Error("cannot load archived orders", "error", err, "period", period)
			view.Error = "Az archívum nem érhető el: " + backend.Reason(err)
			page = nil
		}
	}

	msg := view.Error
	view = buildArchive(period, page)
	view.Error = msg

	data := map[string]interface{}{
		"Title":   "Archívum",
		"Archive": view,
	}
	h.renderTemplate(w, "archive.html", data)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (console.Snapshot, bool) {
	snap, err := h.console.Snapshot(r.Context())
	if err != nil {
		h.log().Error("cannot read order console", "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return console.Snapshot{}, false
	}
	return snap, true
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) (console.OrderState, bool) {
	id, ok := orderID(w, r)
	if !ok {
		return console.OrderState{}, false
	}
	st, err := h.console.Order(r.Context(), id)
	if err != nil {
		if errors.Is(err, console.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
		} else {
			h.log().Error("cannot read order", "error", err, "order_id", id)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		}
		return console.OrderState{}, false
	}
	return st, true
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func cardsOf(snap console.Snapshot) []orderCardView {
	cards := make([]orderCardView, 0, len(snap.Orders))
	for _, st := range snap.Orders {
		cards = append(cards, buildCard(st, snap.Now))
	}
	return cards
}

func inputMessage(err error) string {
	var inputErr *console.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message
	}
	return "Érvénytelen idő"
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes", "igen":
		return true
	}
	return false
}
