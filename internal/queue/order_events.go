package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange       = "genfity.events"
	OrderEventsBinding   = "order.#"
	AnalyticsExchange    = "genfity.analytics"
	AnalyticsEventsQueue = "analytics.order_events"
	AnalyticsEventsDLQ   = "analytics.order_events.dlq"
	AnalyticsDeadRK      = "dead"
	AnalyticsUpdatedRK   = "analytics.metrics.updated"

	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status.updated"
)

// OrderEvent is the envelope the order service publishes on genfity.events.
type OrderEvent struct {
	Type       string     `json:"type"`
	OrderID    int64      `json:"orderId"`
	MerchantID int64      `json:"merchantId"`
	Status     string     `json:"status"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts ids sent either as numbers or numeric strings.
func (e *OrderEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       string          `json:"type"`
		OrderID    json.RawMessage `json:"orderId"`
		MerchantID json.RawMessage `json:"merchantId"`
		Status     string          `json:"status"`
		UpdatedAt  *time.Time      `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	orderID, err := parseID(raw.OrderID)
	if err != nil {
		return fmt.Errorf("orderId: %w", err)
	}
	merchantID, err := parseID(raw.MerchantID)
	if err != nil {
		return fmt.Errorf("merchantId: %w", err)
	}
	*e = OrderEvent{
		Type:       strings.TrimSpace(raw.Type),
		OrderID:    orderID,
		MerchantID: merchantID,
		Status:     raw.Status,
		UpdatedAt:  raw.UpdatedAt,
	}
	return nil
}

func parseID(raw json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (e OrderEvent) Relevant() bool {
	return e.Type == EventOrderCreated || e.Type == EventOrderStatusUpdated
}

// MetricsUpdated is published back on genfity.events after a recompute.
type MetricsUpdated struct {
	MerchantID   int64     `json:"merchantId"`
	Period       string    `json:"period"`
	TotalRevenue float64   `json:"totalRevenue"`
	TotalCount   int       `json:"totalCount"`
	Alerts       int       `json:"alerts"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

type topology interface {
	EnsureExchangeKind(name string, kind string) error
	EnsureQueueWithArgs(name string, args amqp.Table) (amqp.Queue, error)
	BindQueue(queueName, exchange, routingKey string) error
}

// EnsureAnalyticsTopology declares the order-events queue bound to
// genfity.events plus its dead-letter queue.
func EnsureAnalyticsTopology(qc topology) error {
	if err := qc.EnsureExchangeKind(EventsExchange, "topic"); err != nil {
		return err
	}
	if err := qc.EnsureExchangeKind(AnalyticsExchange, "direct"); err != nil {
		return err
	}
	if _, err := qc.EnsureQueueWithArgs(AnalyticsEventsDLQ, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(AnalyticsEventsDLQ, AnalyticsExchange, AnalyticsDeadRK); err != nil {
		return err
	}
	if _, err := qc.EnsureQueueWithArgs(AnalyticsEventsQueue, amqp.Table{
		"x-dead-letter-exchange":    AnalyticsExchange,
		"x-dead-letter-routing-key": AnalyticsDeadRK,
	}); err != nil {
		return err
	}
	// '#' also matches multi-segment keys like order.status.updated.
	return qc.BindQueue(AnalyticsEventsQueue, EventsExchange, OrderEventsBinding)
}

type OrderEventHandler interface {
	HandleOrderEvent(ctx context.Context, evt OrderEvent) error
}

// MerchantResolver finds the merchant of an order for events that omit it.
type MerchantResolver interface {
	MerchantForOrder(ctx context.Context, orderID int64) (int64, error)
}

// ProcessOrderEvent decodes an event body and hands relevant events to h.
// Malformed bodies are dropped rather than retried.
func ProcessOrderEvent(ctx context.Context, resolver MerchantResolver, h OrderEventHandler, body []byte) error {
	var evt OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil
	}
	if !evt.Relevant() {
		return nil
	}
	if evt.MerchantID == 0 {
		if resolver == nil || evt.OrderID == 0 {
			return nil
		}
		merchantID, err := resolver.MerchantForOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		evt.MerchantID = merchantID
	}
	return h.HandleOrderEvent(ctx, evt)
}
