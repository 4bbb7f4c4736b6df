package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/auth"
	"genfity-analytics-service/internal/config"
	"genfity-analytics-service/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageState   = "analytics.state"
	MessageRefresh = "analytics.refresh"
	MessageError   = "error"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MetricsSource resolves dashboard metrics for a merchant.
type MetricsSource interface {
	Metrics(ctx context.Context, merchantID int64, q analytics.Query) (analytics.MetricsResult, error)
}

type Server struct {
	Source  MetricsSource
	Logger  *zap.Logger
	Config  config.Config
	Metrics *metrics.Recorder

	analyticsRealtime *analyticsRealtime
}

func New(source MetricsSource, logger *zap.Logger, cfg config.Config, recorder *metrics.Recorder) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Source:            source,
		Logger:            logger,
		Config:            cfg,
		Metrics:           recorder,
		analyticsRealtime: newAnalyticsRealtime(),
	}
}

type wsRealtimeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	query   analytics.Query
}

func (c *wsRealtimeClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *wsRealtimeClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// queryKey groups subscribers that would receive the same payload.
func (c *wsRealtimeClient) queryKey() string {
	key := string(c.query.Period)
	if c.query.CustomRange != nil {
		key += "|" + c.query.CustomRange.Start + "|" + c.query.CustomRange.End
	}
	return key
}

type analyticsRealtime struct {
	mu   sync.RWMutex
	subs map[int64]map[*wsRealtimeClient]struct{}
}

func newAnalyticsRealtime() *analyticsRealtime {
	return &analyticsRealtime{subs: make(map[int64]map[*wsRealtimeClient]struct{})}
}

func (ar *analyticsRealtime) subscribe(merchantID int64, client *wsRealtimeClient) func() {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if ar.subs[merchantID] == nil {
		ar.subs[merchantID] = make(map[*wsRealtimeClient]struct{})
	}
	ar.subs[merchantID][client] = struct{}{}

	return func() {
		ar.mu.Lock()
		defer ar.mu.Unlock()
		if clients, ok := ar.subs[merchantID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(ar.subs, merchantID)
			}
		}
	}
}

func (ar *analyticsRealtime) clients(merchantID int64) []*wsRealtimeClient {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	clients := make([]*wsRealtimeClient, 0, len(ar.subs[merchantID]))
	for client := range ar.subs[merchantID] {
		clients = append(clients, client)
	}
	return clients
}

func (ar *analyticsRealtime) drop(merchantID int64, client *wsRealtimeClient) {
	_ = client.conn.Close()
	ar.mu.Lock()
	if set, ok := ar.subs[merchantID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(ar.subs, merchantID)
		}
	}
	ar.mu.Unlock()
}

func (ar *analyticsRealtime) count(merchantID int64) int {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	return len(ar.subs[merchantID])
}

// Subscribers returns how many dashboards are open for a merchant.
func (s *Server) Subscribers(merchantID int64) int {
	return s.analyticsRealtime.count(merchantID)
}

// Broadcast writes payload to every dashboard of the merchant.
func (s *Server) Broadcast(merchantID int64, payload any) {
	for _, client := range s.analyticsRealtime.clients(merchantID) {
		if err := client.writeJSON(payload); err != nil {
			s.analyticsRealtime.drop(merchantID, client)
		}
	}
}

// Push recomputes metrics once per distinct subscribed window and sends them.
func (s *Server) Push(ctx context.Context, merchantID int64) {
	clients := s.analyticsRealtime.clients(merchantID)
	if len(clients) == 0 {
		return
	}

	groups := make(map[string][]*wsRealtimeClient)
	for _, client := range clients {
		key := client.queryKey()
		groups[key] = append(groups[key], client)
	}

	for _, group := range groups {
		query := group[0].query
		result, err := s.Source.Metrics(ctx, merchantID, query)
		var payload map[string]any
		if err != nil {
			s.Logger.Warn("analytics push failed", zap.Int64("merchantId", merchantID), zap.Error(err))
			payload = map[string]any{"type": MessageRefresh, "updatedAt": time.Now()}
		} else {
			payload = map[string]any{"type": MessageState, "data": result}
		}
		for _, client := range group {
			if writeErr := client.writeJSON(payload); writeErr != nil {
				s.analyticsRealtime.drop(merchantID, client)
			}
		}
	}
}

func (s *Server) MerchantAnalyticsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := auth.TokenFromQuery(r.URL.Query().Get("token"))
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil || !claims.IsMerchant() || !claims.HasPermission(auth.PermRevenue) {
		_ = conn.WriteJSON(map[string]any{"type": MessageError, "message": "unauthorized"})
		return
	}

	merchantID, err := claims.MerchantIDValue()
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": MessageError, "message": "unauthorized"})
		return
	}

	ctx := r.Context()
	client := &wsRealtimeClient{conn: conn, query: queryFromRequest(r)}
	unsubscribe := s.analyticsRealtime.subscribe(merchantID, client)
	defer unsubscribe()

	s.Metrics.WSClientConnected()
	defer s.Metrics.WSClientDisconnected()

	// Send initial metrics immediately
	if result, fetchErr := s.Source.Metrics(ctx, merchantID, client.query); fetchErr == nil {
		_ = client.writeJSON(map[string]any{"type": MessageState, "data": result})
	} else {
		s.Logger.Warn("analytics initial state failed", zap.Int64("merchantId", merchantID), zap.Error(fetchErr))
		_ = client.writeJSON(map[string]any{"type": MessageRefresh, "updatedAt": time.Now()})
	}

	heartbeat := s.Config.WSHeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(heartbeat * 2))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(heartbeat * 2))
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(heartbeat * 2))
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}

func queryFromRequest(r *http.Request) analytics.Query {
	values := r.URL.Query()
	period, _ := analytics.ParsePeriod(values.Get("period"))
	q := analytics.Query{Period: period}
	start := strings.TrimSpace(values.Get("startDate"))
	end := strings.TrimSpace(values.Get("endDate"))
	if period == analytics.PeriodCustom && start != "" && end != "" {
		q.CustomRange = &analytics.CustomRange{Start: start, End: end}
	}
	return q
}
