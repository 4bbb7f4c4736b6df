package analytics

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmptyInput(t *testing.T) {
	got := Compute(nil, Query{Period: PeriodToday}, fixedNow)

	assert.Zero(t, got.TotalRevenue)
	assert.Zero(t, got.TotalCount)
	assert.Zero(t, got.AvgTicket)
	assert.Zero(t, got.AvgItemsPerOrder)
	assert.Zero(t, got.TotalDiscounts)
	assert.Equal(t, ChannelBreakdown{}, got.ChannelBreakdown)
	assert.Equal(t, int64(100), got.QualityMetrics.Score)
	assert.Equal(t, int64(100), got.QualityMetrics.OnTimeRate)
	assert.Zero(t, got.QualityMetrics.ComplaintRate)
	assert.Equal(t, int64(2), got.AvgAcceptance)
	assert.Equal(t, int64(15), got.AvgPrep)
	assert.Equal(t, int64(20), got.AvgDelivery)
	assert.Equal(t, DispatchPerformance{}, got.DispatchPerformance)
	assert.Equal(t, BagAlerts{}, got.BagAlerts)

	require.Len(t, got.FunnelData, 3)
	for _, stage := range got.FunnelData {
		assert.Zero(t, stage.Value)
	}
	require.Len(t, got.ChannelComparison, 2)
	assert.Zero(t, got.ChannelComparison[0].Ticket)
	assert.Zero(t, got.ChannelComparison[1].Ticket)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"abcProducts", "categoryEfficiency", "topNeighborhoods", "insights", "driverLoads"} {
		assert.JSONEq(t, "[]", string(fields[key]), key)
	}
}

func TestComputeRevenueScenario(t *testing.T) {
	cancelled := deliveredOrder("x", 1000)
	cancelled.Status = StatusCancelled
	orders := []Order{
		deliveredOrder("a", 50),
		deliveredOrder("b", 30),
		deliveredOrder("c", 20),
		cancelled,
	}

	got := Compute(orders, Query{Period: PeriodToday}, fixedNow)

	assert.Equal(t, 100.00, got.TotalRevenue)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, 33.33, got.AvgTicket)
	assert.Equal(t, 1, got.CancelledCount)
	assert.Equal(t, 1.0, got.AvgItemsPerOrder)
	assert.Equal(t, ChannelBreakdown{Delivery: 3}, got.ChannelBreakdown)
	for _, product := range got.ABCProducts {
		assert.NotEqual(t, "x-item", product.ID)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := []OrderStatus{StatusPending, StatusPreparing, StatusDispatched, StatusDelivered, StatusCancelled}
	categories := []string{"Pizzas", "Bebidas", "Lanches", "Sobremesas", "Porções"}
	drivers := []string{"Ana", "Bruno", "Carla"}

	orders := make([]Order, 0, 60)
	for i := 0; i < 60; i++ {
		placed := at(float64(rng.Intn(60 * 24 * 10)))
		order := Order{
			ID:        string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Status:    statuses[rng.Intn(len(statuses))],
			Timestamp: placed,
			Total:     float64(rng.Intn(20000)) / 100,
			Discount:  float64(rng.Intn(500)) / 100,
			Address:   "Rua Um, 10 - Centro - Cidade",
		}
		if rng.Intn(2) == 0 {
			order.Origin = OriginDelivery
			order.DriverName = drivers[rng.Intn(len(drivers))]
		} else {
			order.TableNumber = "4"
		}
		if rng.Intn(3) > 0 {
			order.PreparedAt = after(placed, float64(rng.Intn(10)))
			order.DispatchedAt = after(placed, float64(10+rng.Intn(25)))
		}
		for j := 0; j <= rng.Intn(3); j++ {
			order.Items = append(order.Items, OrderItem{
				ID:       categories[j],
				Name:     categories[j],
				Category: categories[rng.Intn(len(categories))],
				Quantity: float64(1 + rng.Intn(3)),
				Price:    float64(rng.Intn(5000)) / 100,
			})
		}
		orders = append(orders, order)
	}

	engine := NewEngine(DefaultTuning(), time.UTC)
	for _, period := range Periods {
		q := Query{Period: period, CustomRange: &CustomRange{Start: "2026-03-08", End: "2026-03-15"}}
		first, err := json.Marshal(engine.Compute(orders, q, fixedNow))
		require.NoError(t, err)
		second, err := json.Marshal(engine.Compute(orders, q, fixedNow))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second), period)

		got := engine.Compute(orders, q, fixedNow)
		assert.GreaterOrEqual(t, got.QualityMetrics.Score, int64(0))
		assert.LessOrEqual(t, got.QualityMetrics.Score, int64(100))
		assert.GreaterOrEqual(t, got.QualityMetrics.OnTimeRate, int64(0))
		assert.LessOrEqual(t, got.QualityMetrics.OnTimeRate, int64(100))
		assert.GreaterOrEqual(t, got.QualityMetrics.ComplaintRate, 0.0)
		assert.LessOrEqual(t, got.QualityMetrics.ComplaintRate, 100.0)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	orders := []Order{deliveredOrder("b", 10), deliveredOrder("a", 90)}
	snapshot, err := json.Marshal(orders)
	require.NoError(t, err)

	Compute(orders, Query{Period: Period30Days}, fixedNow)

	again, err := json.Marshal(orders)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(again))
}

func TestComputeInsights(t *testing.T) {
	orders := make([]Order, 0, 6)
	for i, id := range []string{"a", "b", "c"} {
		order := deliveredOrder(id, float64(10*(i+1)))
		order.PreparedAt = after(order.Timestamp, 1)
		order.DispatchedAt = after(order.Timestamp, 31)
		orders = append(orders, order)
	}
	for _, id := range []string{"x", "y", "z"} {
		order := deliveredOrder(id, 5)
		order.Status = StatusCancelled
		orders = append(orders, order)
	}

	got := Compute(orders, Query{Period: PeriodToday}, fixedNow)

	require.Len(t, got.Insights, 3)
	assert.Equal(t, InsightTrend, got.Insights[0].Type)
	assert.Contains(t, got.Insights[0].Message, "Item c")
	assert.Equal(t, InsightAlert, got.Insights[1].Type)
	assert.Contains(t, got.Insights[1].Message, "30 min")
	assert.Equal(t, InsightAlert, got.Insights[2].Type)
	assert.Contains(t, got.Insights[2].Message, "3 pedidos cancelados")
	assert.Len(t, Alerts(got.Insights), 2)
}

func TestComputeUnknownPeriodFallsBackToToday(t *testing.T) {
	orders := []Order{deliveredOrder("today", 10)}
	old := deliveredOrder("old", 99)
	old.Timestamp = fixedNow.AddDate(0, 0, -2)
	orders = append(orders, old)

	got := Compute(orders, Query{Period: "algum dia"}, fixedNow)

	assert.Equal(t, PeriodToday, got.Period)
	assert.Equal(t, 1, got.TotalCount)
	assert.Equal(t, 10.0, got.TotalRevenue)
}

func TestNewEngineFillsTuningDefaults(t *testing.T) {
	engine := NewEngine(Tuning{BagLimit: 4}, nil)

	tuning := engine.Tuning()
	assert.Equal(t, 4, tuning.BagLimit)
	assert.Equal(t, 2.5, tuning.FunnelCartFactor)
	assert.Equal(t, 3.3, tuning.FunnelViewFactor)
	assert.Equal(t, 45.0, tuning.OnTimeMinutes)
	assert.Equal(t, 0.8, tuning.PrepFallbackFactor)
	assert.Equal(t, time.UTC, engine.Location())
}

func TestChannelBreakdown(t *testing.T) {
	orders := []Order{
		{Origin: OriginDelivery, TableNumber: "3"},
		{IsDelivery: true},
		{TableNumber: "7"},
		{Origin: OriginTable},
		{Origin: "BALCAO"},
	}

	assert.Equal(t, ChannelBreakdown{Delivery: 2, Tables: 2, POS: 1}, BuildChannelBreakdown(orders))
}

func TestCompareChannels(t *testing.T) {
	orders := []Order{
		{Origin: OriginDelivery, Total: 40},
		{IsDelivery: true, Total: 20.01},
		{TableNumber: "2", Total: 100},
		{Origin: "BALCAO", Total: 999},
	}

	got := CompareChannels(orders)

	require.Len(t, got, 2)
	assert.Equal(t, ChannelDelivery, got[0].Name)
	assert.Equal(t, 30.01, got[0].Ticket)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, ChannelDineIn, got[1].Name)
	assert.Equal(t, 100.0, got[1].Ticket)
	assert.NotEmpty(t, got[0].Fill)
}

func TestTableRefDecodesNumbersAndStrings(t *testing.T) {
	var orders []Order
	raw := `[{"id":"1","tableNumber":12},{"id":"2","tableNumber":" 5 "},{"id":"3","tableNumber":null},{"id":"4"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &orders))

	assert.Equal(t, TableRef("12"), orders[0].TableNumber)
	assert.Equal(t, TableRef("5"), orders[1].TableNumber)
	assert.True(t, orders[1].IsTableChannel())
	assert.False(t, orders[2].IsTableChannel())
	assert.False(t, orders[3].IsTableChannel())
}
