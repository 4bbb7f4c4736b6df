package analytics

import "fmt"

type InsightType string

const (
	InsightTrend InsightType = "TREND"
	InsightAlert InsightType = "ALERT"

	slowPrepAlertMinutes  = 25
	cancellationAlertOver = 2
)

type Insight struct {
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
}

// BuildInsights derives the rule-based dashboard hints.
func BuildInsights(avgPrep int64, cancelledCount int, products []ProductStat) []Insight {
	out := make([]Insight, 0, 3)
	if len(products) > 0 && products[0].Share > 0 {
		top := products[0]
		out = append(out, Insight{
			Type:    InsightTrend,
			Message: fmt.Sprintf("%s lidera o faturamento com %.1f%% da receita do período.", top.Name, top.Share),
		})
	}
	if avgPrep > slowPrepAlertMinutes {
		out = append(out, Insight{
			Type:    InsightAlert,
			Message: fmt.Sprintf("Tempo médio de preparo em %d min, acima da meta de %d min.", avgPrep, slowPrepAlertMinutes),
		})
	}
	if cancelledCount > cancellationAlertOver {
		out = append(out, Insight{
			Type:    InsightAlert,
			Message: fmt.Sprintf("%d pedidos cancelados no período. Verifique a operação.", cancelledCount),
		})
	}
	return out
}

// Alerts filters the ALERT insights of a result.
func Alerts(insights []Insight) []Insight {
	out := make([]Insight, 0, len(insights))
	for _, insight := range insights {
		if insight.Type == InsightAlert {
			out = append(out, insight)
		}
	}
	return out
}
