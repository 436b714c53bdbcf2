package event

import (
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/orderdesk/pkg/order"
)

const (
	OrdersTopic = "orders.events"

	EventNewOrder          = "newOrder"
	EventOrderStatusUpdate = "orderStatusUpdate"
	EventOrderCompleted    = "orderCompleted"
)

// Event is a named message received from the backend push channel.
// Data holds the raw JSON payload.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// OrderCompletedEvent is the payload of orderCompleted.
type OrderCompletedEvent struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
}

// NewOrder decodes a newOrder payload.
func (e Event) NewOrder() (order.Order, error) {
	var o order.Order
	if err := json.Unmarshal(e.Data, &o); err != nil {
		return order.Order{}, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	if o.ID == 0 {
		return order.Order{}, fmt.Errorf("decode %s: missing id", e.Name)
	}
	return o, nil
}

// StatusUpdate decodes an orderStatusUpdate payload. Both id and status are required.
func (e Event) StatusUpdate() (order.Patch, error) {
	var p order.Patch
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return order.Patch{}, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	if p.ID == 0 || p.Status == nil {
		return order.Patch{}, fmt.Errorf("decode %s: id and status are required", e.Name)
	}
	return p, nil
}

// Completed decodes an orderCompleted payload.
func (e Event) Completed() (OrderCompletedEvent, error) {
	var c OrderCompletedEvent
	if err := json.Unmarshal(e.Data, &c); err != nil {
		return OrderCompletedEvent{}, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	if c.ID == 0 {
		return OrderCompletedEvent{}, fmt.Errorf("decode %s: missing id", e.Name)
	}
	return c, nil
}

// Encode builds an envelope for publishers (NATS, tests).
func Encode(name string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: raw}, nil
}
