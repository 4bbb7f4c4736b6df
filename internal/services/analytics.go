package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/cache"
	"genfity-analytics-service/internal/metrics"
	"genfity-analytics-service/internal/notify"
	"genfity-analytics-service/internal/queue"
	"genfity-analytics-service/internal/store"

	"go.uber.org/zap"
)

const metricsCachePrefix = "metrics"

// Pusher refreshes live dashboards of a merchant.
type Pusher interface {
	Push(ctx context.Context, merchantID int64)
}

type AlertPublisher interface {
	Enabled() bool
	Publish(ctx context.Context, alerts []notify.Alert) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error
}

type Options struct {
	Repo     store.OrderRepository
	Cache    cache.Cache
	Engine   *analytics.Engine
	CacheTTL time.Duration
	Metrics  *metrics.Recorder
	Logger   *zap.Logger

	Live   Pusher
	Alerts AlertPublisher
	Events EventPublisher
}

// Analytics serves merchant dashboards from the order repository, caching
// computed results per merchant and window.
type Analytics struct {
	repo     store.OrderRepository
	cache    cache.Cache
	engine   *analytics.Engine
	cacheTTL time.Duration
	metrics  *metrics.Recorder
	logger   *zap.Logger

	live   Pusher
	alerts AlertPublisher
	events EventPublisher

	now func() time.Time
}

func NewAnalytics(opts Options) *Analytics {
	engine := opts.Engine
	if engine == nil {
		engine = analytics.NewEngine(analytics.DefaultTuning(), time.UTC)
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analytics{
		repo:     opts.Repo,
		cache:    c,
		engine:   engine,
		cacheTTL: opts.CacheTTL,
		metrics:  opts.Metrics,
		logger:   logger,
		live:     opts.Live,
		alerts:   opts.Alerts,
		events:   opts.Events,
		now:      time.Now,
	}
}

// SetLive attaches the dashboard pusher after construction; the hub itself
// reads metrics through this service.
func (s *Analytics) SetLive(live Pusher) {
	s.live = live
}

func (s *Analytics) Engine() *analytics.Engine {
	return s.engine
}

// Now is the current instant in the reporting location.
func (s *Analytics) Now() time.Time {
	return s.now().In(s.engine.Location())
}

// Compute runs the engine over caller-supplied orders.
func (s *Analytics) Compute(orders []analytics.Order, q analytics.Query) analytics.MetricsResult {
	start := time.Now()
	result := s.engine.Compute(orders, q, s.Now())
	s.metrics.ObserveCompute("request", time.Since(start))
	return result
}

func metricsCacheKey(merchantID int64, q analytics.Query, window analytics.DateRange) string {
	period, _ := analytics.ParsePeriod(string(q.Period))
	return cache.Key(metricsCachePrefix, merchantID,
		string(period),
		window.Start.Format(time.RFC3339),
		window.End.Format(time.RFC3339),
	)
}

// Metrics loads the merchant's orders for the query window and computes the
// dashboard, serving repeated requests from cache.
func (s *Analytics) Metrics(ctx context.Context, merchantID int64, q analytics.Query) (analytics.MetricsResult, error) {
	if merchantID <= 0 {
		return analytics.MetricsResult{}, store.ErrMerchantNotFound
	}
	if s.repo == nil {
		return analytics.MetricsResult{}, errors.New("order repository not configured")
	}

	now := s.Now()
	window := s.engine.Range(q, now)
	key := metricsCacheKey(merchantID, q, window)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached analytics.MetricsResult
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			s.metrics.CacheHit()
			return cached, nil
		}
	}
	s.metrics.CacheMiss()

	orders, err := s.repo.ListOrders(ctx, merchantID, window)
	if err != nil {
		return analytics.MetricsResult{}, fmt.Errorf("list orders: %w", err)
	}

	start := time.Now()
	result := s.engine.Compute(orders, q, now)
	s.metrics.ObserveCompute("store", time.Since(start))

	if s.cacheTTL > 0 {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
				s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return result, nil
}

// HandleOrderEvent refreshes everything derived from the merchant's orders:
// cached results, live dashboards, alerts and the metrics.updated event.
func (s *Analytics) HandleOrderEvent(ctx context.Context, evt queue.OrderEvent) error {
	merchantID := evt.MerchantID
	if err := s.cache.InvalidateMerchant(ctx, merchantID); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.Int64("merchantId", merchantID), zap.Error(err))
	}

	result, err := s.Metrics(ctx, merchantID, analytics.Query{Period: analytics.PeriodToday})
	if err != nil {
		s.metrics.EventConsumed(evt.Type, err)
		return err
	}

	if s.live != nil {
		s.live.Push(ctx, merchantID)
	}

	alerts := notify.AlertsFrom(merchantID, result)
	if s.alerts != nil && s.alerts.Enabled() && len(alerts) > 0 {
		if err := s.alerts.Publish(ctx, alerts); err != nil {
			s.logger.Warn("analytics alert delivery failed", zap.Int64("merchantId", merchantID), zap.Error(err))
		}
	}

	if s.events != nil {
		update := queue.MetricsUpdated{
			MerchantID:   merchantID,
			Period:       string(result.Period),
			TotalRevenue: result.TotalRevenue,
			TotalCount:   result.TotalCount,
			Alerts:       len(alerts),
			GeneratedAt:  result.GeneratedAt,
		}
		if err := s.events.PublishJSON(ctx, queue.EventsExchange, queue.AnalyticsUpdatedRK, update); err != nil {
			s.logger.Warn("analytics update publish failed", zap.Int64("merchantId", merchantID), zap.Error(err))
		}
	}

	s.metrics.EventConsumed(evt.Type, nil)
	s.logger.Debug("analytics refreshed",
		zap.Int64("merchantId", merchantID),
		zap.Int64("orderId", evt.OrderID),
		zap.String("event", evt.Type),
		zap.Int("alerts", len(alerts)),
	)
	return nil
}
