package analytics

import "genfity-analytics-service/internal/finance"

const (
	ChannelDelivery = "Delivery"
	ChannelDineIn   = "Salão"

	deliveryFill = "#3b82f6"
	dineInFill   = "#10b981"
)

type ChannelTicket struct {
	Name   string  `json:"name"`
	Ticket float64 `json:"ticket"`
	Count  int     `json:"count"`
	Fill   string  `json:"fill"`
}

// ChannelBreakdown is the three-way split of valid orders by sales origin.
type ChannelBreakdown struct {
	Delivery int `json:"delivery"`
	Tables   int `json:"tables"`
	POS      int `json:"pos"`
}

func BuildChannelBreakdown(orders []Order) ChannelBreakdown {
	var out ChannelBreakdown
	for _, order := range orders {
		switch {
		case order.IsDeliveryChannel():
			out.Delivery++
		case order.IsTableChannel():
			out.Tables++
		default:
			out.POS++
		}
	}
	return out
}

// CompareChannels reports the average ticket of delivery and dine-in orders.
// Counter sales are left out of this comparison.
func CompareChannels(orders []Order) []ChannelTicket {
	var deliveryCount, dineInCount int
	deliveryRevenue := finance.Decimal(0)
	dineInRevenue := finance.Decimal(0)

	for _, order := range orders {
		switch {
		case order.IsDeliveryChannel():
			deliveryCount++
			deliveryRevenue = deliveryRevenue.Add(finance.Decimal(order.Total))
		case order.IsTableChannel():
			dineInCount++
			dineInRevenue = dineInRevenue.Add(finance.Decimal(order.Total))
		}
	}

	return []ChannelTicket{
		{Name: ChannelDelivery, Ticket: averageTicket(deliveryRevenue.InexactFloat64(), deliveryCount), Count: deliveryCount, Fill: deliveryFill},
		{Name: ChannelDineIn, Ticket: averageTicket(dineInRevenue.InexactFloat64(), dineInCount), Count: dineInCount, Fill: dineInFill},
	}
}

func averageTicket(revenue float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return finance.RoundFinance(revenue / float64(count))
}
