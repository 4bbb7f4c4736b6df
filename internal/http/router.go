package httpapi

import (
	"net/http"

	"genfity-analytics-service/internal/config"
	"genfity-analytics-service/internal/http/handlers"
	"genfity-analytics-service/internal/metrics"
	"genfity-analytics-service/internal/middleware"
	"genfity-analytics-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(logger *zap.Logger, cfg config.Config, h *handlers.Handler, wsServer *ws.Server, prom *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger, prom))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Request-Id",
				"Cache-Control",
			},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if prom != nil {
		r.Handle("/metrics", prom.Handler())
	}

	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(setResponseHeader("Cache-Control", "no-store"))
		r.Post("/compute", h.ComputeAnalytics)
		r.Get("/periods", h.AnalyticsPeriods)
	})

	r.Route("/api/merchant", func(r chi.Router) {
		r.Use(middleware.MerchantAuth(cfg.JWTSecret))
		r.Use(setResponseHeader("Cache-Control", "no-store"))
		r.Get("/analytics", h.MerchantAnalytics)
		r.Get("/analytics/abc.csv", h.MerchantAnalyticsABCCSV)
		r.Get("/analytics/report.pdf", h.MerchantAnalyticsReportPDF)
		r.Get("/analytics/snapshots", h.MerchantSnapshotsList)
		r.Post("/analytics/snapshots", h.MerchantSnapshotsCreate)
		r.Post("/checkout/quote", h.MerchantCheckoutQuote)
	})

	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronAuth(cfg.CronSecret))
		r.Post("/analytics/snapshots", h.CronAnalyticsSnapshots)
	})

	if wsServer != nil {
		r.Get("/ws/merchant/analytics", wsServer.MerchantAnalyticsWS)
	}

	return r
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
