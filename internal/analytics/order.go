package analytics

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusPreparing  OrderStatus = "PREPARING"
	StatusDispatched OrderStatus = "DISPATCHED"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusScheduled  OrderStatus = "SCHEDULED"
)

const (
	OriginDelivery = "DELIVERY"
	OriginTable    = "MESA"
)

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Order is the read-only input of the engine. Lifecycle timestamps are nil
// until the matching transition happens; any of them may be missing.
type Order struct {
	ID           string       `json:"id"`
	Status       OrderStatus  `json:"status"`
	Timestamp    time.Time    `json:"timestamp"`
	PreparedAt   *time.Time   `json:"preparedAt,omitempty"`
	DispatchedAt *time.Time   `json:"dispatchedAt,omitempty"`
	DeliveredAt  *time.Time   `json:"deliveredAt,omitempty"`
	Total        float64      `json:"total"`
	Subtotal     float64      `json:"subtotal"`
	DeliveryFee  float64      `json:"deliveryFee"`
	Discount     float64      `json:"discount"`
	Items        []OrderItem  `json:"items"`
	Origin       string       `json:"origin,omitempty"`
	IsDelivery   bool         `json:"isDelivery,omitempty"`
	TableNumber  TableRef     `json:"tableNumber,omitempty"`
	DriverName   string       `json:"driverName,omitempty"`
	Address      string       `json:"address,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// TableRef is a table identifier. POS clients send it either as a string or a
// bare number, both decode to the same value.
type TableRef string

func (t *TableRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TableRef(strings.TrimSpace(s))
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*t = TableRef(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

func (o Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

func (o Order) IsDeliveryChannel() bool {
	return strings.EqualFold(o.Origin, OriginDelivery) || o.IsDelivery
}

func (o Order) IsTableChannel() bool {
	return strings.TrimSpace(string(o.TableNumber)) != "" || strings.EqualFold(o.Origin, OriginTable)
}

// ValidOrders drops cancelled orders. Revenue metrics only look at these.
func ValidOrders(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		if !order.IsCancelled() {
			out = append(out, order)
		}
	}
	return out
}

func minutesBetween(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}
