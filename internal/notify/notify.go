package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/metrics"

	"go.uber.org/zap"
)

// Alert is an ALERT insight raised for one merchant.
type Alert struct {
	MerchantID  int64            `json:"merchantId"`
	Period      analytics.Period `json:"period"`
	Message     string           `json:"message"`
	AvgPrep     int64            `json:"avgPrep"`
	Cancelled   int              `json:"cancelledCount"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type Sink interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// AlertsFrom turns the ALERT insights of m into alerts for merchantID.
func AlertsFrom(merchantID int64, m analytics.MetricsResult) []Alert {
	insights := analytics.Alerts(m.Insights)
	out := make([]Alert, 0, len(insights))
	for _, insight := range insights {
		out = append(out, Alert{
			MerchantID:  merchantID,
			Period:      m.Period,
			Message:     insight.Message,
			AvgPrep:     m.AvgPrep,
			Cancelled:   m.CancelledCount,
			GeneratedAt: m.GeneratedAt,
		})
	}
	return out
}

// Fanout delivers alerts to every sink. The same message for the same
// merchant is sent at most once per cooldown.
type Fanout struct {
	sinks    []Sink
	cooldown time.Duration
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewFanout(logger *zap.Logger, recorder *metrics.Recorder, cooldown time.Duration, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{
		sinks:    sinks,
		cooldown: cooldown,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
		sent:     map[string]time.Time{},
	}
}

func (f *Fanout) Enabled() bool {
	return f != nil && len(f.sinks) > 0
}

func (f *Fanout) Publish(ctx context.Context, alerts []Alert) error {
	if !f.Enabled() {
		return nil
	}
	var errs []error
	for _, alert := range alerts {
		if !f.claim(alert) {
			continue
		}
		for _, sink := range f.sinks {
			err := sink.Send(ctx, alert)
			f.metrics.AlertPublished(sink.Name(), err)
			if err != nil {
				f.logger.Warn("alert delivery failed",
					zap.String("sink", sink.Name()),
					zap.Int64("merchantId", alert.MerchantID),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) claim(alert Alert) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fmt.Sprintf("%d|%s", alert.MerchantID, alert.Message)
	now := f.now()
	if last, ok := f.sent[key]; ok && now.Sub(last) < f.cooldown {
		return false
	}
	for k, at := range f.sent {
		if now.Sub(at) >= f.cooldown {
			delete(f.sent, k)
		}
	}
	f.sent[key] = now
	return true
}

func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		if closer, ok := sink.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
