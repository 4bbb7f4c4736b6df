package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFunnel(t *testing.T) {
	tuning := DefaultTuning()

	got := BuildFunnel(10, tuning)
	require.Len(t, got, 3)
	assert.Equal(t, FunnelStage{Name: FunnelStageViews, Value: 83}, got[0])
	assert.Equal(t, FunnelStage{Name: FunnelStageCart, Value: 25}, got[1])
	assert.Equal(t, FunnelStage{Name: FunnelStageOrders, Value: 10}, got[2])

	// 3 orders -> 7.5 carts rounds up to 8, 8 * 3.3 = 26.4 -> 26.
	got = BuildFunnel(3, tuning)
	assert.Equal(t, int64(26), got[0].Value)
	assert.Equal(t, int64(8), got[1].Value)

	for _, stage := range BuildFunnel(0, tuning) {
		assert.Zero(t, stage.Value)
	}
}

func TestBuildQualityMetrics(t *testing.T) {
	tuning := DefaultTuning()
	placed := at(120)

	onTime := Order{Status: StatusDelivered, Timestamp: placed, DeliveredAt: after(placed, 45)}
	late := Order{Status: StatusDelivered, Timestamp: placed, DeliveredAt: after(placed, 46)}
	cancelled := Order{Status: StatusCancelled, Timestamp: placed}
	pending := Order{Status: StatusPending, Timestamp: placed}

	t.Run("mixed", func(t *testing.T) {
		got := BuildQualityMetrics([]Order{onTime, late, cancelled, pending}, fixedNow, tuning)
		assert.Equal(t, int64(50), got.OnTimeRate)
		assert.Equal(t, 25.0, got.ComplaintRate)
		// (0.5*0.7 + 0.75*0.3) * 100 = 57.5
		assert.Equal(t, int64(58), got.Score)
	})

	t.Run("no completed orders", func(t *testing.T) {
		got := BuildQualityMetrics([]Order{cancelled, pending, pending}, fixedNow, tuning)
		assert.Equal(t, int64(100), got.Score)
		assert.Equal(t, int64(100), got.OnTimeRate)
		assert.Equal(t, 33.33, got.ComplaintRate)
	})

	t.Run("all cancelled but one late", func(t *testing.T) {
		got := BuildQualityMetrics([]Order{late, cancelled, cancelled, cancelled}, fixedNow, tuning)
		assert.Equal(t, int64(0), got.OnTimeRate)
		assert.Equal(t, 75.0, got.ComplaintRate)
		assert.Equal(t, int64(8), got.Score)
	})

	t.Run("missing deliveredAt measured against now", func(t *testing.T) {
		recent := Order{Status: StatusDelivered, Timestamp: at(30)}
		stale := Order{Status: StatusDelivered, Timestamp: at(90)}
		got := BuildQualityMetrics([]Order{recent, stale}, fixedNow, tuning)
		assert.Equal(t, int64(50), got.OnTimeRate)
	})

	t.Run("empty", func(t *testing.T) {
		got := BuildQualityMetrics(nil, fixedNow, tuning)
		assert.Equal(t, QualityMetrics{Score: 100, OnTimeRate: 100}, got)
	})
}

func TestBuildDispatchPerformance(t *testing.T) {
	placed := at(90)
	orders := []Order{
		{Timestamp: placed, DispatchedAt: after(placed, 9.9)},
		{Timestamp: placed, DispatchedAt: after(placed, 10)},
		{Timestamp: placed, DispatchedAt: after(placed, 15)},
		{Timestamp: placed, DispatchedAt: after(placed, 20)},
		{Timestamp: placed, DispatchedAt: after(placed, 21)},
		{Timestamp: placed},
		{Status: StatusCancelled, Timestamp: placed, DispatchedAt: after(placed, 2)},
	}

	got := BuildDispatchPerformance(orders)

	assert.Equal(t, DispatchPerformance{Under10: 2, Over20: 1}, got)
	assert.Equal(t, DispatchPerformance{}, BuildDispatchPerformance(orders[2:3]))
}

func TestDriverLoadsAndBagAlerts(t *testing.T) {
	tuning := DefaultTuning()
	orders := make([]Order, 0)
	for i := 0; i < 6; i++ {
		orders = append(orders, Order{Status: StatusDispatched, DriverName: "Bruno"})
	}
	orders = append(orders,
		Order{Status: StatusDispatched, DriverName: "Ana"},
		Order{Status: StatusDispatched, DriverName: "Ana"},
		Order{Status: StatusDelivered, DriverName: "Carla"},
		Order{Status: StatusDispatched},
	)

	loads := DriverLoads(orders, tuning)

	require.Len(t, loads, 2)
	assert.Equal(t, DriverLoad{DriverName: "Bruno", Orders: 6, AtLimit: true}, loads[0])
	assert.Equal(t, DriverLoad{DriverName: "Ana", Orders: 2}, loads[1])
	assert.Equal(t, BagAlerts{DriversAtLimit: 1, ActiveDrivers: 2}, BuildBagAlerts(loads))
}

func TestBuildTimeMetrics(t *testing.T) {
	tuning := DefaultTuning()
	placed := at(100)

	full := Order{
		Timestamp:    placed,
		PreparedAt:   after(placed, 4),
		DispatchedAt: after(placed, 14),
		DeliveredAt:  after(placed, 39),
		Items: []OrderItem{
			{Category: "Pizzas"},
			{Category: "Pizzas"},
			{Category: "Bebidas"},
		},
	}
	// No preparedAt: 20 min to dispatch * 0.8 = 16 min prep.
	gap := Order{
		Timestamp:    placed,
		DispatchedAt: after(placed, 20),
		Items:        []OrderItem{{Category: "Pizzas"}},
	}

	got := BuildTimeMetrics([]Order{full, gap}, tuning)

	assert.Equal(t, int64(4), got.AvgAcceptance)
	assert.Equal(t, int64(13), got.AvgPrep)
	assert.Equal(t, int64(25), got.AvgDelivery)
	require.Len(t, got.CategoryEfficiency, 2)
	assert.Equal(t, CategoryTime{Name: "Bebidas", AvgTime: 10, Orders: 1}, got.CategoryEfficiency[0])
	assert.Equal(t, CategoryTime{Name: "Pizzas", AvgTime: 13, Orders: 2}, got.CategoryEfficiency[1])
}

func TestBuildTimeMetricsDefaults(t *testing.T) {
	got := BuildTimeMetrics([]Order{{Timestamp: at(10)}}, DefaultTuning())

	assert.Equal(t, int64(2), got.AvgAcceptance)
	assert.Equal(t, int64(15), got.AvgPrep)
	assert.Equal(t, int64(20), got.AvgDelivery)
	assert.NotNil(t, got.CategoryEfficiency)
	assert.Empty(t, got.CategoryEfficiency)
}

func TestCategoryEfficiencyTiesAreOrderedByName(t *testing.T) {
	placed := at(60)
	orders := []Order{
		{Timestamp: placed, PreparedAt: after(placed, 1), DispatchedAt: after(placed, 13), Items: []OrderItem{{Category: "Sobremesas"}}},
		{Timestamp: placed, PreparedAt: after(placed, 1), DispatchedAt: after(placed, 13), Items: []OrderItem{{Category: "Bebidas"}}},
		{Timestamp: placed, PreparedAt: after(placed, 1), DispatchedAt: after(placed, 13), Items: []OrderItem{{Category: "Lanches"}}},
		{Timestamp: placed, PreparedAt: after(placed, 1), DispatchedAt: after(placed, 31), Items: []OrderItem{{Category: "Pizzas"}}},
		{Timestamp: placed, PreparedAt: after(placed, 1), DispatchedAt: after(placed, 6), Items: []OrderItem{{Category: "Porções"}}},
	}

	for i := 0; i < 5; i++ {
		got := BuildTimeMetrics(orders, DefaultTuning()).CategoryEfficiency
		require.Len(t, got, 4)
		names := []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name}
		assert.Equal(t, []string{"Porções", "Bebidas", "Lanches", "Sobremesas"}, names)
	}
}

func TestTopNeighborhoods(t *testing.T) {
	orders := []Order{
		{Address: "Rua A, 10 - Centro - Curitiba", Total: 50},
		{Address: "Rua B, 22 -  Centro  - Curitiba", Total: 25.5},
		{Address: "Av. Brasil, 100 - Batel", Total: 80},
		{Address: "Sem separador", Total: 12},
		{Address: "Rua C - Água Verde", Total: 30},
		{Address: "Rua D - Bigorrilho", Total: 30},
		{Address: "Rua E - Ahú", Total: 5},
		{Total: 1000},
	}

	got := TopNeighborhoods(orders)

	require.Len(t, got, 5)
	assert.Equal(t, []NeighborhoodRevenue{
		{Name: "Batel", Value: 80},
		{Name: "Centro", Value: 75.5},
		{Name: "Bigorrilho", Value: 30},
		{Name: "Água Verde", Value: 30},
		{Name: "Outros", Value: 12},
	}, got)
}

func TestNeighborhoodOfSplitsOnHyphen(t *testing.T) {
	assert.Equal(t, "Centro", NeighborhoodOf("Rua X, 1 - Centro - SP"))
	assert.Equal(t, "Outros", NeighborhoodOf("Rua X, 1"))
	assert.Equal(t, "Outros", NeighborhoodOf("Rua X, 1 -  - SP"))
	// Hyphenated street names misparse, kept for compatibility.
	assert.Equal(t, "Ferreira, 5", NeighborhoodOf("Rua Costa-Ferreira, 5 - Centro"))
}
