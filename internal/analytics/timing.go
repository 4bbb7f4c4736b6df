package analytics

import (
	"sort"
	"strings"

	"genfity-analytics-service/internal/finance"
)

const (
	defaultAcceptanceMinutes = 2
	defaultPrepMinutes       = 15
	defaultDeliveryMinutes   = 20

	categoryEfficiencyLimit = 4
	uncategorized           = "Outros"
)

type CategoryTime struct {
	Name    string `json:"name"`
	AvgTime int64  `json:"avgTime"`
	Orders  int    `json:"orders"`
}

type TimeMetrics struct {
	AvgAcceptance      int64          `json:"avgAcceptance"`
	AvgPrep            int64          `json:"avgPrep"`
	AvgDelivery        int64          `json:"avgDelivery"`
	CategoryEfficiency []CategoryTime `json:"categoryEfficiency"`
}

type runningMean struct {
	sum   float64
	count int
}

func (m *runningMean) add(v float64) {
	m.sum += v
	m.count++
}

func (m runningMean) value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

func (m runningMean) minutesOr(fallback int64) int64 {
	if m.count == 0 {
		return fallback
	}
	return finance.RoundHalfUp(m.value())
}

// prepMinutes returns the preparation time of an order. Without a preparedAt
// checkpoint it is estimated as a fraction of the time until dispatch.
func prepMinutes(order Order, tuning Tuning) (float64, bool) {
	if order.DispatchedAt == nil {
		return 0, false
	}
	if order.PreparedAt != nil {
		return minutesBetween(*order.PreparedAt, *order.DispatchedAt), true
	}
	return minutesBetween(order.Timestamp, *order.DispatchedAt) * tuning.PrepFallbackFactor, true
}

// BuildTimeMetrics averages acceptance, preparation and delivery durations of
// valid orders. Each order's prep time is attributed in full to every
// distinct category it contains.
func BuildTimeMetrics(orders []Order, tuning Tuning) TimeMetrics {
	var acceptance, prep, delivery runningMean
	categories := make(map[string]*runningMean)

	for _, order := range orders {
		if order.PreparedAt != nil {
			acceptance.add(minutesBetween(order.Timestamp, *order.PreparedAt))
		}
		if order.DeliveredAt != nil && order.DispatchedAt != nil {
			delivery.add(minutesBetween(*order.DispatchedAt, *order.DeliveredAt))
		}

		prepTime, ok := prepMinutes(order, tuning)
		if !ok {
			continue
		}
		prep.add(prepTime)

		seen := make(map[string]struct{}, len(order.Items))
		for _, item := range order.Items {
			name := strings.TrimSpace(item.Category)
			if name == "" {
				name = uncategorized
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			mean, exists := categories[name]
			if !exists {
				mean = &runningMean{}
				categories[name] = mean
			}
			mean.add(prepTime)
		}
	}

	return TimeMetrics{
		AvgAcceptance:      acceptance.minutesOr(defaultAcceptanceMinutes),
		AvgPrep:            prep.minutesOr(defaultPrepMinutes),
		AvgDelivery:        delivery.minutesOr(defaultDeliveryMinutes),
		CategoryEfficiency: fastestCategories(categories, categoryEfficiencyLimit),
	}
}

func fastestCategories(categories map[string]*runningMean, limit int) []CategoryTime {
	type ranked struct {
		name string
		avg  float64
		n    int
	}
	rows := make([]ranked, 0, len(categories))
	for name, mean := range categories {
		rows = append(rows, ranked{name: name, avg: mean.value(), n: mean.count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].avg != rows[j].avg {
			return rows[i].avg < rows[j].avg
		}
		return rows[i].name < rows[j].name
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]CategoryTime, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryTime{Name: row.name, AvgTime: finance.RoundHalfUp(row.avg), Orders: row.n})
	}
	return out
}
