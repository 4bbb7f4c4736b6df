package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/auth"
	"genfity-analytics-service/internal/config"
	"genfity-analytics-service/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-secret"

type fakeSource struct {
	mu      sync.Mutex
	calls   []analytics.Query
	revenue float64
	err     error
}

func (f *fakeSource) Metrics(_ context.Context, _ int64, q analytics.Query) (analytics.MetricsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.err != nil {
		return analytics.MetricsResult{}, f.err
	}
	return analytics.MetricsResult{Period: q.Period, TotalRevenue: f.revenue}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type wsMessage struct {
	Type    string                   `json:"type"`
	Message string                   `json:"message"`
	Data    *analytics.MetricsResult `json:"data"`
}

func newTestServer(t *testing.T, source MetricsSource) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Config{JWTSecret: testSecret, WSHeartbeatInterval: time.Second}
	srv := New(source, nil, cfg, metrics.New())
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.MerchantAnalyticsWS))
	t.Cleanup(httpSrv.Close)
	return srv, httpSrv
}

func dial(t *testing.T, httpSrv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/merchant/analytics?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func merchantToken(t *testing.T, merchantID int64) string {
	t.Helper()
	token, err := auth.MerchantToken(merchantID, auth.RoleMerchantOwner, nil, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestMerchantAnalyticsWSSendsInitialState(t *testing.T) {
	source := &fakeSource{revenue: 150}
	srv, httpSrv := newTestServer(t, source)

	conn := dial(t, httpSrv, "period=7d&token="+merchantToken(t, 7))
	msg := readMessage(t, conn)

	assert.Equal(t, MessageState, msg.Type)
	require.NotNil(t, msg.Data)
	assert.Equal(t, analytics.Period7Days, msg.Data.Period)
	assert.Equal(t, 150.0, msg.Data.TotalRevenue)
	assert.Equal(t, 1, srv.Subscribers(7))
	assert.Equal(t, 0, srv.Subscribers(8))
}

func TestMerchantAnalyticsWSRejectsBadToken(t *testing.T) {
	_, httpSrv := newTestServer(t, &fakeSource{})

	conn := dial(t, httpSrv, "token=nope")
	msg := readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "unauthorized", msg.Message)
}

func TestMerchantAnalyticsWSRequiresRevenuePermission(t *testing.T) {
	_, httpSrv := newTestServer(t, &fakeSource{})
	token, err := auth.MerchantToken(7, auth.RoleMerchantStaff, []string{"orders"}, testSecret, time.Hour)
	require.NoError(t, err)

	conn := dial(t, httpSrv, "token="+token)
	msg := readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
}

func TestPushGroupsSubscribersByWindow(t *testing.T) {
	source := &fakeSource{revenue: 10}
	srv, httpSrv := newTestServer(t, source)
	token := merchantToken(t, 3)

	a := dial(t, httpSrv, "period=Hoje&token="+token)
	b := dial(t, httpSrv, "token="+token)
	c := dial(t, httpSrv, "period=30d&token="+token)
	for _, conn := range []*websocket.Conn{a, b, c} {
		readMessage(t, conn)
	}
	require.Equal(t, 3, srv.Subscribers(3))
	before := source.callCount()

	srv.Push(context.Background(), 3)

	for _, conn := range []*websocket.Conn{a, b, c} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageState, msg.Type)
	}
	assert.Equal(t, before+2, source.callCount())
}

func TestPushFallsBackToRefreshOnError(t *testing.T) {
	source := &fakeSource{}
	srv, httpSrv := newTestServer(t, source)
	conn := dial(t, httpSrv, "token="+merchantToken(t, 4))
	readMessage(t, conn)

	source.mu.Lock()
	source.err = errors.New("store down")
	source.mu.Unlock()

	srv.Push(context.Background(), 4)
	msg := readMessage(t, conn)
	assert.Equal(t, MessageRefresh, msg.Type)
}

func TestBroadcastDropsClosedClients(t *testing.T) {
	srv, httpSrv := newTestServer(t, &fakeSource{})
	conn := dial(t, httpSrv, "token="+merchantToken(t, 9))
	readMessage(t, conn)

	srv.Broadcast(9, map[string]any{"type": "custom"})
	msg := readMessage(t, conn)
	assert.Equal(t, "custom", msg.Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		srv.Broadcast(9, map[string]any{"type": "custom"})
		return srv.Subscribers(9) == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestQueryFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?period=custom&startDate=2026-01-01&endDate=2026-01-31", nil)
	q := queryFromRequest(r)
	assert.Equal(t, analytics.PeriodCustom, q.Period)
	require.NotNil(t, q.CustomRange)
	assert.Equal(t, "2026-01-01", q.CustomRange.Start)

	r = httptest.NewRequest(http.MethodGet, "/ws?period=bogus", nil)
	q = queryFromRequest(r)
	assert.Equal(t, analytics.PeriodToday, q.Period)
	assert.Nil(t, q.CustomRange)
}
