package analytics

import (
	"time"

	"genfity-analytics-service/internal/finance"

	"github.com/shopspring/decimal"
)

// Tuning holds the heuristic constants of the engine. They are estimates
// agreed with operations, not measured values.
type Tuning struct {
	FunnelCartFactor   float64
	FunnelViewFactor   float64
	OnTimeMinutes      float64
	BagLimit           int
	PrepFallbackFactor float64
}

func DefaultTuning() Tuning {
	return Tuning{
		FunnelCartFactor:   2.5,
		FunnelViewFactor:   3.3,
		OnTimeMinutes:      45,
		BagLimit:           6,
		PrepFallbackFactor: 0.8,
	}
}

// withDefaults fills unset or invalid fields from DefaultTuning.
func (t Tuning) withDefaults() Tuning {
	def := DefaultTuning()
	if t.FunnelCartFactor <= 0 {
		t.FunnelCartFactor = def.FunnelCartFactor
	}
	if t.FunnelViewFactor <= 0 {
		t.FunnelViewFactor = def.FunnelViewFactor
	}
	if t.OnTimeMinutes <= 0 {
		t.OnTimeMinutes = def.OnTimeMinutes
	}
	if t.BagLimit <= 0 {
		t.BagLimit = def.BagLimit
	}
	if t.PrepFallbackFactor <= 0 {
		t.PrepFallbackFactor = def.PrepFallbackFactor
	}
	return t
}

type Query struct {
	Period      Period       `json:"period"`
	CustomRange *CustomRange `json:"customRange,omitempty"`
}

type MetricsResult struct {
	Period              Period                `json:"period"`
	StartDate           time.Time             `json:"startDate"`
	EndDate             time.Time             `json:"endDate"`
	GeneratedAt         time.Time             `json:"generatedAt"`
	TotalRevenue        float64               `json:"totalRevenue"`
	TotalCount          int                   `json:"totalCount"`
	AvgTicket           float64               `json:"avgTicket"`
	AvgItemsPerOrder    float64               `json:"avgItemsPerOrder"`
	ChannelBreakdown    ChannelBreakdown      `json:"channelBreakdown"`
	TotalDiscounts      float64               `json:"totalDiscounts"`
	CancelledCount      int                   `json:"cancelledCount"`
	AvgAcceptance       int64                 `json:"avgAcceptance"`
	AvgPrep             int64                 `json:"avgPrep"`
	AvgDelivery         int64                 `json:"avgDelivery"`
	FunnelData          []FunnelStage         `json:"funnelData"`
	ABCProducts         []ProductStat         `json:"abcProducts"`
	ChannelComparison   []ChannelTicket       `json:"channelComparison"`
	QualityMetrics      QualityMetrics        `json:"qualityMetrics"`
	DispatchPerformance DispatchPerformance   `json:"dispatchPerformance"`
	BagAlerts           BagAlerts             `json:"bagAlerts"`
	DriverLoads         []DriverLoad          `json:"driverLoads"`
	CategoryEfficiency  []CategoryTime        `json:"categoryEfficiency"`
	TopNeighborhoods    []NeighborhoodRevenue `json:"topNeighborhoods"`
	Insights            []Insight             `json:"insights"`
}

// Engine computes dashboard metrics from an in-memory order list. It keeps no
// state between calls; the clock and location are explicit inputs.
type Engine struct {
	tuning   Tuning
	location *time.Location
}

func NewEngine(tuning Tuning, location *time.Location) *Engine {
	if location == nil {
		location = time.UTC
	}
	return &Engine{tuning: tuning.withDefaults(), location: location}
}

func (e *Engine) Tuning() Tuning {
	return e.tuning
}

func (e *Engine) Location() *time.Location {
	return e.location
}

// Range resolves the window a query covers at now.
func (e *Engine) Range(q Query, now time.Time) DateRange {
	return ResolveRange(normalizePeriod(q.Period), q.CustomRange, now.In(e.location))
}

func normalizePeriod(p Period) Period {
	resolved, _ := ParsePeriod(string(p))
	return resolved
}

// Compute filters orders to the query window once and derives every metric
// from that subset.
func (e *Engine) Compute(orders []Order, q Query, now time.Time) MetricsResult {
	now = now.In(e.location)
	period := normalizePeriod(q.Period)
	window := ResolveRange(period, q.CustomRange, now)

	filtered := FilterOrdersByDate(orders, window)
	valid := ValidOrders(filtered)
	cancelled := len(filtered) - len(valid)

	revenue := decimal.Zero
	discounts := decimal.Zero
	items := decimal.Zero
	for _, order := range valid {
		revenue = revenue.Add(finance.Decimal(order.Total))
		discounts = discounts.Add(finance.Decimal(order.Discount))
		for _, item := range order.Items {
			items = items.Add(finance.Decimal(item.Quantity))
		}
	}

	result := MetricsResult{
		Period:         period,
		StartDate:      window.Start,
		EndDate:        window.End,
		GeneratedAt:    now,
		TotalRevenue:   revenue.Round(2).InexactFloat64(),
		TotalCount:     len(valid),
		TotalDiscounts: discounts.Round(2).InexactFloat64(),
		CancelledCount: cancelled,
	}
	if len(valid) > 0 {
		count := decimal.NewFromInt(int64(len(valid)))
		result.AvgTicket = revenue.Div(count).Round(2).InexactFloat64()
		result.AvgItemsPerOrder = items.Div(count).Round(2).InexactFloat64()
	}

	timing := BuildTimeMetrics(valid, e.tuning)
	loads := DriverLoads(filtered, e.tuning)

	result.ChannelBreakdown = BuildChannelBreakdown(valid)
	result.AvgAcceptance = timing.AvgAcceptance
	result.AvgPrep = timing.AvgPrep
	result.AvgDelivery = timing.AvgDelivery
	result.CategoryEfficiency = timing.CategoryEfficiency
	result.FunnelData = BuildFunnel(len(valid), e.tuning)
	result.ABCProducts = ClassifyProducts(valid)
	result.ChannelComparison = CompareChannels(valid)
	result.QualityMetrics = BuildQualityMetrics(filtered, now, e.tuning)
	result.DispatchPerformance = BuildDispatchPerformance(filtered)
	result.DriverLoads = loads
	result.BagAlerts = BuildBagAlerts(loads)
	result.TopNeighborhoods = TopNeighborhoods(valid)
	result.Insights = BuildInsights(timing.AvgPrep, cancelled, result.ABCProducts)
	return result
}

// Compute runs a default-tuned engine in UTC.
func Compute(orders []Order, q Query, now time.Time) MetricsResult {
	return NewEngine(DefaultTuning(), time.UTC).Compute(orders, q, now)
}
