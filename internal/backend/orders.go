package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/appetiteclub/orderdesk/pkg/order"
)

// Period filters the archive listing.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

var Periods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodAll}

func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "Ez a hét"
	case PeriodMonth:
		return "Ez a hónap"
	case PeriodAll:
		return "Összes"
	default:
		return "Ma"
	}
}

// ParsePeriod falls back to today for empty input.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodToday, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown archive period %q", s)
}

// ArchiveQuery selects a page of archived orders.
type ArchiveQuery struct {
	Period Period
	Page   int
	Limit  int
}

func (q ArchiveQuery) normalized() ArchiveQuery {
	if q.Period == "" {
		q.Period = PeriodToday
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	return q
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ArchivePage is one page of delivered or cancelled orders.
type ArchivePage struct {
	Orders     []order.Order `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

type acceptRequest struct {
	EstimatedMinutes int `json:"estimatedMinutes"`
}

// ListActive returns the authoritative list of active orders.
func (c *Client) ListActive(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	if err := c.call(ctx, "ListActive", http.MethodGet, "/orders/active", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) ListArchived(ctx context.Context, q ArchiveQuery) (*ArchivePage, error) {
	q = q.normalized()

	params := url.Values{}
	params.Set("period", string(q.Period))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))

	var page ArchivePage
	if err := c.call(ctx, "ListArchived", http.MethodGet, "/orders/archived?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}
	if page.Pagination.Page == 0 {
		page.Pagination.Page = q.Page
	}
	if page.Pagination.Limit == 0 {
		page.Pagination.Limit = q.Limit
	}
	return &page, nil
}

func (c *Client) Accept(ctx context.Context, id int64, estimatedMinutes int) error {
	return c.command(ctx, "Accept", id, "accept", acceptRequest{EstimatedMinutes: estimatedMinutes})
}

func (c *Client) Cancel(ctx context.Context, id int64) error {
	return c.command(ctx, "Cancel", id, "cancel", nil)
}

func (c *Client) MarkReady(ctx context.Context, id int64) error {
	return c.command(ctx, "MarkReady", id, "ready", nil)
}

func (c *Client) MarkOutForDelivery(ctx context.Context, id int64) error {
	return c.command(ctx, "MarkOutForDelivery", id, "delivery", nil)
}

func (c *Client) Complete(ctx context.Context, id int64) error {
	return c.command(ctx, "Complete", id, "complete", nil)
}

func (c *Client) command(ctx context.Context, op string, id int64, verb string, body interface{}) error {
	if id <= 0 {
		return fmt.Errorf("%s: missing order id", op)
	}
	path := fmt.Sprintf("/orders/%d/%s", id, verb)
	return c.call(ctx, op, http.MethodPut, path, body, nil)
}
