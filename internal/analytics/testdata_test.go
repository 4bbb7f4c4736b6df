package analytics

import "time"

var fixedNow = time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)

func at(minutesAgo float64) time.Time {
	return fixedNow.Add(-time.Duration(minutesAgo * float64(time.Minute)))
}

func ptr(t time.Time) *time.Time {
	return &t
}

func after(base time.Time, minutes float64) *time.Time {
	return ptr(base.Add(time.Duration(minutes * float64(time.Minute))))
}

func deliveredOrder(id string, total float64) Order {
	placed := at(60)
	return Order{
		ID:           id,
		Status:       StatusDelivered,
		Timestamp:    placed,
		PreparedAt:   after(placed, 3),
		DispatchedAt: after(placed, 18),
		DeliveredAt:  after(placed, 40),
		Total:        total,
		Subtotal:     total,
		Origin:       OriginDelivery,
		Items: []OrderItem{
			{ID: id + "-item", Name: "Item " + id, Category: "Lanches", Quantity: 1, Price: total},
		},
	}
}
