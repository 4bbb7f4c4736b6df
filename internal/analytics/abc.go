package analytics

import (
	"sort"
	"strings"

	"genfity-analytics-service/internal/finance"

	"github.com/shopspring/decimal"
)

type Classification string

const (
	ClassA Classification = "A"
	ClassB Classification = "B"
	ClassC Classification = "C"

	classAThreshold = 80.0
	classBThreshold = 95.0
)

type ProductStat struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Category       string         `json:"category,omitempty"`
	UnitsSold      float64        `json:"unitsSold"`
	Revenue        float64        `json:"revenue"`
	Share          float64        `json:"share"`
	Classification Classification `json:"classification"`
}

type productAccumulator struct {
	id       string
	name     string
	category string
	units    decimal.Decimal
	revenue  decimal.Decimal
}

func productKey(item OrderItem) string {
	if id := strings.TrimSpace(item.ID); id != "" {
		return id
	}
	return strings.TrimSpace(item.Name)
}

// ClassifyProducts ranks products of the given orders by revenue and assigns
// Pareto tiers from the cumulative share. Callers pass valid orders only.
func ClassifyProducts(orders []Order) []ProductStat {
	index := make(map[string]int)
	accs := make([]*productAccumulator, 0)

	for _, order := range orders {
		for _, item := range order.Items {
			key := productKey(item)
			qty := finance.Decimal(item.Quantity)
			lineRevenue := finance.Decimal(item.Price).Mul(qty)

			pos, ok := index[key]
			if !ok {
				pos = len(accs)
				index[key] = pos
				accs = append(accs, &productAccumulator{
					id:       key,
					name:     item.Name,
					category: item.Category,
				})
			}
			accs[pos].units = accs[pos].units.Add(qty)
			accs[pos].revenue = accs[pos].revenue.Add(lineRevenue)
		}
	}

	sort.SliceStable(accs, func(i, j int) bool {
		return accs[i].revenue.GreaterThan(accs[j].revenue)
	})

	total := decimal.Zero
	for _, acc := range accs {
		total = total.Add(acc.revenue)
	}

	out := make([]ProductStat, 0, len(accs))
	cumulative := decimal.Zero
	for _, acc := range accs {
		stat := ProductStat{
			ID:             acc.id,
			Name:           acc.name,
			Category:       acc.category,
			UnitsSold:      acc.units.InexactFloat64(),
			Revenue:        acc.revenue.Round(2).InexactFloat64(),
			Classification: ClassC,
		}
		if total.IsPositive() {
			cumulative = cumulative.Add(acc.revenue)
			cumulativePct := cumulative.Mul(hundred).Div(total).InexactFloat64()
			stat.Share = acc.revenue.Mul(hundred).Div(total).Round(2).InexactFloat64()
			stat.Classification = classify(cumulativePct)
		}
		out = append(out, stat)
	}
	return out
}

func classify(cumulativePct float64) Classification {
	switch {
	case cumulativePct <= classAThreshold:
		return ClassA
	case cumulativePct <= classBThreshold:
		return ClassB
	default:
		return ClassC
	}
}

var hundred = decimal.NewFromInt(100)
