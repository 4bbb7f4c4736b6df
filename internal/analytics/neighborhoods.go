package analytics

import (
	"sort"
	"strings"

	"genfity-analytics-service/internal/finance"

	"github.com/shopspring/decimal"
)

const (
	unknownNeighborhood = "Outros"
	neighborhoodLimit   = 5
)

type NeighborhoodRevenue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NeighborhoodOf reads the neighborhood out of a "street, number - neighborhood
// - city" address. Hyphens inside street names shift the segments; a
// structured field on the address would be the real fix.
func NeighborhoodOf(address string) string {
	parts := strings.Split(address, "-")
	if len(parts) < 2 {
		return unknownNeighborhood
	}
	name := strings.TrimSpace(parts[1])
	if name == "" {
		return unknownNeighborhood
	}
	return name
}

// TopNeighborhoods sums order totals per neighborhood and keeps the five
// biggest, ties broken by name.
func TopNeighborhoods(orders []Order) []NeighborhoodRevenue {
	totals := make(map[string]decimal.Decimal)
	for _, order := range orders {
		if strings.TrimSpace(order.Address) == "" {
			continue
		}
		name := NeighborhoodOf(order.Address)
		totals[name] = totals[name].Add(finance.Decimal(order.Total))
	}

	out := make([]NeighborhoodRevenue, 0, len(totals))
	for name, total := range totals {
		out = append(out, NeighborhoodRevenue{Name: name, Value: total.Round(2).InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > neighborhoodLimit {
		out = out[:neighborhoodLimit]
	}
	return out
}
