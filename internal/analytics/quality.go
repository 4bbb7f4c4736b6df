package analytics

import (
	"time"

	"genfity-analytics-service/internal/finance"

	"github.com/shopspring/decimal"
)

type QualityMetrics struct {
	Score         int64   `json:"score"`
	ComplaintRate float64 `json:"complaintRate"`
	OnTimeRate    int64   `json:"onTimeRate"`
}

var (
	onTimeWeight = decimal.RequireFromString("0.7")
	keptWeight   = decimal.RequireFromString("0.3")
)

// BuildQualityMetrics scores delivery punctuality and cancellations over the
// whole filtered set, cancelled orders included. A delivered order without a
// deliveredAt is measured against now.
func BuildQualityMetrics(orders []Order, now time.Time, tuning Tuning) QualityMetrics {
	var completed, cancelled, onTime int64
	for _, order := range orders {
		switch order.Status {
		case StatusDelivered:
			completed++
			deliveredAt := now
			if order.DeliveredAt != nil {
				deliveredAt = *order.DeliveredAt
			}
			if minutesBetween(order.Timestamp, deliveredAt) <= tuning.OnTimeMinutes {
				onTime++
			}
		case StatusCancelled:
			cancelled++
		}
	}

	out := QualityMetrics{Score: 100, OnTimeRate: 100}
	total := decimal.NewFromInt(int64(len(orders)))
	if len(orders) == 0 {
		return out
	}

	cancelledRatio := decimal.NewFromInt(cancelled).Div(total)
	out.ComplaintRate = finance.Clamp(cancelledRatio.Mul(hundred).Round(2).InexactFloat64(), 0, 100)

	if completed > 0 {
		onTimeRate := decimal.NewFromInt(onTime).Mul(hundred).Div(decimal.NewFromInt(completed)).Round(0)
		out.OnTimeRate = clampPercent(onTimeRate.IntPart())

		score := onTimeRate.Div(hundred).Mul(onTimeWeight).
			Add(decimal.NewFromInt(1).Sub(cancelledRatio).Mul(keptWeight)).
			Mul(hundred).
			Round(0)
		out.Score = clampPercent(score.IntPart())
	}
	return out
}

func clampPercent(v int64) int64 {
	return int64(finance.Clamp(float64(v), 0, 100))
}
