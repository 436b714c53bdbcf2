package operations

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/appetiteclub/orderdesk/internal/backend"
	"github.com/appetiteclub/orderdesk/internal/console"
	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const timeLayout = "2006.01.02. 15:04"

var printer = message.NewPrinter(language.Hungarian)

// formatMoney renders an amount the way the operators read it, e.g. "10,00 Ft".
func formatMoney(d decimal.Decimal) string {
	return printer.Sprintf("%v Ft", number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// orderCardView powers each card of the active list.
type orderCardView struct {
	ID           int64
	OrderNumber  string
	Customer     string
	Phone        string
	TypeLabel    string
	IsDelivery   bool
	PaymentLabel string
	PaymentClass string
	ItemsSummary string
	Total        string
	Status       string
	StatusLabel  string
	StatusClass  string
	TimeLine     string
	TimeClass    string
	Optimistic   bool
}

type countersView struct {
	Pending   int
	Preparing int
	Ready     int
}

type connectionView struct {
	State string
	Label string
	Class string
}

type toastView struct {
	ID   string
	Kind string
	Text string
}

type orderItemView struct {
	Quantity int
	Name     string
	Total    string
	Details  []string
}

type timelineEntryView struct {
	Label string
	At    string
	Done  bool
}

type actionView struct {
	OrderID  int64
	Action   string
	Label    string
	Confirm  bool
	NeedsETA bool
	Danger   bool
}

// orderModalView is the detail dialog.
type orderModalView struct {
	Card         orderCardView
	Email        string
	Address      string
	Notes        string
	ScheduledFor string
	Items        []orderItemView
	Timeline     []timelineEntryView
	Actions      []actionView
}

type etaView struct {
	OrderID     int64
	OrderNumber string
	Presets     []int
	Min         int
	Max         int
	Minutes     string
	Error       string
	Disabled    bool
}

type cancelView struct {
	OrderID     int64
	OrderNumber string
	Customer    string
}

type periodOption struct {
	Value    string
	Label    string
	Selected bool
}

type archiveView struct {
	Period   string
	Periods  []periodOption
	Orders   []orderCardView
	Page     int
	Pages    int
	Total    int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
	Error    string
}

func buildCounters(c console.Counts) countersView {
	return countersView{Pending: c.Pending, Preparing: c.Preparing, Ready: c.Ready}
}

func buildConnection(state order.ConnState) connectionView {
	if state == "" {
		state = order.Disconnected
	}
	return connectionView{
		State: string(state),
		Label: state.Label(),
		Class: "conn-" + strings.ToLower(string(state)),
	}
}

func buildToasts(toasts []console.Toast) []toastView {
	out := make([]toastView, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, toastView{ID: t.ID, Kind: string(t.Kind), Text: t.Text})
	}
	return out
}

func buildCard(st console.OrderState, now time.Time) orderCardView {
	o := st.Order
	text, class := timeLine(st, now)
	return orderCardView{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Customer:     o.CustomerName,
		Phone:        o.CustomerPhone,
		TypeLabel:    o.OrderType.Label(),
		IsDelivery:   o.IsDelivery(),
		PaymentLabel: o.PaymentMethod.Label(),
		PaymentClass: "payment-" + strings.ToLower(string(o.PaymentMethod)),
		ItemsSummary: summarizeItems(o.Items),
		Total:        formatMoney(o.Total),
		Status:       string(o.Status),
		StatusLabel:  o.Status.Label(),
		StatusClass:  o.Status.Class(),
		TimeLine:     text,
		TimeClass:    class,
		Optimistic:   st.Optimistic,
	}
}

// archivedCard renders a past order. Archived orders carry no timers.
func archivedCard(o order.Order) orderCardView {
	card := buildCard(console.OrderState{Order: o}, time.Time{})
	card.TimeLine = o.Status.Label()
	if o.DeliveredAt != nil {
		card.TimeLine = fmt.Sprintf("%s · %s", o.Status.Label(), o.DeliveredAt.Format(timeLayout))
	}
	card.TimeClass = ""
	return card
}

// timeLine is the context line of a card.
func timeLine(st console.OrderState, now time.Time) (string, string) {
	o := st.Order
	switch o.Status.Canonical() {
	case orderstatus.Pending:
		elapsed := int(math.Floor(now.Sub(o.CreatedAt).Minutes()))
		if elapsed < 0 {
			elapsed = 0
		}
		return fmt.Sprintf("%d perce érkezett", elapsed), "time-elapsed"
	case orderstatus.Confirmed:
		if st.HasTimer {
			return remainingText(st.Remaining)
		}
	case orderstatus.Ready:
		return "Elkészült", "time-ready"
	}
	return o.Status.Label(), ""
}

func remainingText(remaining int) (string, string) {
	if remaining < 0 {
		return "Késésben van", "time-overdue"
	}
	return fmt.Sprintf("%d perc van hátra", remaining), "time-remaining"
}

func summarizeItems(items []order.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d× %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, ", ")
}

func buildItems(items []order.LineItem) []orderItemView {
	out := make([]orderItemView, 0, len(items))
	for _, it := range items {
		var details []string
		if it.SelectedSauce != "" {
			details = append(details, "Szósz: "+it.SelectedSauce)
		}
		if it.FriesUpgrade != "" {
			details = append(details, "Köret: "+it.FriesUpgrade)
		}
		if len(it.Extras) > 0 {
			details = append(details, "Extra: "+strings.Join(it.Extras, ", "))
		}
		if len(it.RemoveItems) > 0 {
			details = append(details, "Nélküle: "+strings.Join(it.RemoveItems, ", "))
		}
		if it.SpecialNotes != "" {
			details = append(details, "Megjegyzés: "+it.SpecialNotes)
		}
		out = append(out, orderItemView{
			Quantity: it.Quantity,
			Name:     it.Name,
			Total:    formatMoney(it.TotalPrice),
			Details:  details,
		})
	}
	return out
}

func buildTimeline(o order.Order) []timelineEntryView {
	entry := func(label string, at *time.Time) timelineEntryView {
		if at == nil {
			return timelineEntryView{Label: label}
		}
		return timelineEntryView{Label: label, At: at.Format(timeLayout), Done: true}
	}

	created := o.CreatedAt
	entries := []timelineEntryView{
		entry("Beérkezett", &created),
		entry("Elfogadva", o.AcceptedAt),
	}
	if o.EstimatedTime != nil {
		entries = append(entries, timelineEntryView{Label: "Várható elkészülés", At: o.EstimatedTime.Format(timeLayout)})
	}
	entries = append(entries, entry("Elkészült", o.ReadyAt))
	label := "Átadva"
	if o.IsDelivery() {
		label = "Kiszállítva"
	}
	return append(entries, entry(label, o.DeliveredAt))
}

func buildActions(st console.OrderState) []actionView {
	out := make([]actionView, 0, len(st.Actions))
	for _, t := range st.Actions {
		out = append(out, actionView{
			OrderID:  st.Order.ID,
			Action:   string(t.Action),
			Label:    t.Label,
			Confirm:  t.Confirm,
			NeedsETA: t.Effects.Has(console.SetEstimatedTime),
			Danger:   t.Action == console.ActionCancel,
		})
	}
	return out
}

func buildModal(st console.OrderState, now time.Time) orderModalView {
	o := st.Order
	view := orderModalView{
		Card:     buildCard(st, now),
		Email:    o.CustomerEmail,
		Items:    buildItems(o.Items),
		Timeline: buildTimeline(o),
		Actions:  buildActions(st),
	}
	if o.IsDelivery() {
		view.Address = o.Address
		view.Notes = o.Notes
	}
	if o.ScheduledFor != nil {
		view.ScheduledFor = o.ScheduledFor.Format(timeLayout)
	}
	return view
}

func buildETA(o order.Order, minutes string, inputErr string) etaView {
	return etaView{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Presets:     console.ETAPresets,
		Min:         console.MinETAMinutes,
		Max:         console.MaxETAMinutes,
		Minutes:     minutes,
		Error:       inputErr,
		Disabled:    inputErr != "" || strings.TrimSpace(minutes) == "",
	}
}

func buildArchive(period backend.Period, page *backend.ArchivePage) archiveView {
	view := archiveView{Period: string(period), Page: 1, Pages: 1}
	for _, p := range backend.Periods {
		view.Periods = append(view.Periods, periodOption{Value: string(p), Label: p.Label(), Selected: p == period})
	}
	if page == nil {
		return view
	}

	for _, o := range page.Orders {
		view.Orders = append(view.Orders, archivedCard(o))
	}
	view.Page = page.Pagination.Page
	view.Pages = page.Pagination.Pages
	if view.Pages < 1 {
		view.Pages = 1
	}
	view.Total = page.Pagination.Total
	view.HasPrev = view.Page > 1
	view.HasNext = view.Page < view.Pages
	view.PrevPage = view.Page - 1
	view.NextPage = view.Page + 1
	return view
}
