package middleware

import (
	"bufio"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"genfity-analytics-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type telemetryRecorder struct {
	response http.ResponseWriter
	status   int
	bytes    int
}

// routeLatency keeps the last N durations per route in a ring.
type routeLatency struct {
	samples []int64
	next    int
}

type latencyTracker struct {
	mu     sync.Mutex
	size   int
	routes map[string]*routeLatency
}

func newLatencyTracker(size int) *latencyTracker {
	return &latencyTracker{size: size, routes: make(map[string]*routeLatency)}
}

// observe stores ms for route and returns the route's current p50 and p95.
func (t *latencyTracker) observe(route string, ms int64) (int64, int64) {
	t.mu.Lock()
	ring, ok := t.routes[route]
	if !ok {
		ring = &routeLatency{samples: make([]int64, 0, t.size)}
		t.routes[route] = ring
	}
	if len(ring.samples) < t.size {
		ring.samples = append(ring.samples, ms)
	} else {
		ring.samples[ring.next] = ms
		ring.next = (ring.next + 1) % t.size
	}
	sorted := append([]int64(nil), ring.samples...)
	t.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return nearestRank(sorted, 0.5), nearestRank(sorted, 0.95)
}

func nearestRank(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

var requestLatency = newLatencyTracker(200)

// quietRoutes are probes scraped often enough to drown the request log.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

func (r *telemetryRecorder) Header() http.Header {
	return r.response.Header()
}

func (r *telemetryRecorder) WriteHeader(status int) {
	r.status = status
	r.response.WriteHeader(status)
}

func (r *telemetryRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.response.Write(data)
	r.bytes += n
	return n, err
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *telemetryRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.response.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *telemetryRecorder) Flush() {
	if f, ok := r.response.(http.Flusher); ok {
		f.Flush()
	}
}

// Telemetry logs every request with rolling p50/p95 latency per route and
// feeds the HTTP histogram of prom.
func Telemetry(logger *zap.Logger, prom *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &telemetryRecorder{response: w}

			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}

			duration := time.Since(start)
			routePattern := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				routePattern = rc.RoutePattern()
			}
			prom.ObserveHTTP(r.Method, routePattern, status, duration)

			if logger == nil || quietRoutes[routePattern] {
				return
			}
			key := r.Method + " " + routePattern
			if routePattern == "" {
				key = r.Method + " " + r.URL.Path
			}
			p50, p95 := requestLatency.observe(key, duration.Milliseconds())

			level := zap.InfoLevel
			switch {
			case status >= 500:
				level = zap.ErrorLevel
			case status >= 400:
				level = zap.WarnLevel
			}
			logger.Log(level, "http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern),
				zap.String("requestId", readRequestID(r)),
				zap.Int("status", status),
				zap.Int("bytes", recorder.bytes),
				zap.Int64("duration_ms", duration.Milliseconds()),
				zap.Int64("p50_ms", p50),
				zap.Int64("p95_ms", p95),
			)
		})
	}
}
