package analytics

import (
	"genfity-analytics-service/internal/finance"

	"github.com/shopspring/decimal"
)

const (
	FunnelStageViews  = "Visualizações"
	FunnelStageCart   = "Adic. Sacola"
	FunnelStageOrders = "Pedidos"
)

type FunnelStage struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// BuildFunnel estimates views and cart additions backwards from the order
// count. The stages are not tracked events.
func BuildFunnel(orderCount int, tuning Tuning) []FunnelStage {
	if orderCount <= 0 {
		return []FunnelStage{
			{Name: FunnelStageViews, Value: 0},
			{Name: FunnelStageCart, Value: 0},
			{Name: FunnelStageOrders, Value: 0},
		}
	}
	cart := scaleCount(int64(orderCount), tuning.FunnelCartFactor)
	views := scaleCount(cart, tuning.FunnelViewFactor)
	return []FunnelStage{
		{Name: FunnelStageViews, Value: views},
		{Name: FunnelStageCart, Value: cart},
		{Name: FunnelStageOrders, Value: int64(orderCount)},
	}
}

func scaleCount(count int64, factor float64) int64 {
	scaled := decimal.NewFromInt(count).Mul(finance.Decimal(factor))
	return finance.RoundHalfUp(scaled.InexactFloat64())
}
