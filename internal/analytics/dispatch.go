package analytics

import "sort"

type DispatchPerformance struct {
	Under10 int `json:"under10"`
	Over20  int `json:"over20"`
}

type BagAlerts struct {
	DriversAtLimit int `json:"driversAtLimit"`
	ActiveDrivers  int `json:"activeDrivers"`
}

type DriverLoad struct {
	DriverName string `json:"driverName"`
	Orders     int    `json:"orders"`
	AtLimit    bool   `json:"atLimit"`
}

const (
	fastDispatchMinutes = 10
	slowDispatchMinutes = 20
)

// BuildDispatchPerformance buckets dispatch latency at the extremes only. An
// order dispatched between 10 and 20 minutes counts in neither bucket.
func BuildDispatchPerformance(orders []Order) DispatchPerformance {
	var out DispatchPerformance
	for _, order := range orders {
		if order.DispatchedAt == nil || order.Timestamp.IsZero() {
			continue
		}
		elapsed := minutesBetween(order.Timestamp, *order.DispatchedAt)
		switch {
		case elapsed < fastDispatchMinutes:
			out.Under10++
		case elapsed > slowDispatchMinutes:
			out.Over20++
		}
	}
	return out
}

// DriverLoads counts orders currently out for delivery per rider, sorted by
// load descending then name.
func DriverLoads(orders []Order, tuning Tuning) []DriverLoad {
	counts := make(map[string]int)
	for _, order := range orders {
		if order.Status != StatusDispatched || order.DriverName == "" {
			continue
		}
		counts[order.DriverName]++
	}

	out := make([]DriverLoad, 0, len(counts))
	for name, count := range counts {
		out = append(out, DriverLoad{DriverName: name, Orders: count, AtLimit: count >= tuning.BagLimit})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].DriverName < out[j].DriverName
	})
	return out
}

func BuildBagAlerts(loads []DriverLoad) BagAlerts {
	out := BagAlerts{ActiveDrivers: len(loads)}
	for _, load := range loads {
		if load.AtLimit {
			out.DriversAtLimit++
		}
	}
	return out
}
