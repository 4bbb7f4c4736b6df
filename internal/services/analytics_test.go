package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/cache"
	"genfity-analytics-service/internal/metrics"
	"genfity-analytics-service/internal/notify"
	"genfity-analytics-service/internal/queue"
	"genfity-analytics-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

type fakeRepo struct {
	mu      sync.Mutex
	orders  map[int64][]analytics.Order
	calls   int
	windows []analytics.DateRange
	err     error
}

func (r *fakeRepo) ListOrders(_ context.Context, merchantID int64, window analytics.DateRange) ([]analytics.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.windows = append(r.windows, window)
	if r.err != nil {
		return nil, r.err
	}
	return r.orders[merchantID], nil
}

func (r *fakeRepo) ActiveMerchantIDs(_ context.Context, _ analytics.DateRange) ([]int64, error) {
	ids := make([]int64, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakePusher struct{ pushed []int64 }

func (p *fakePusher) Push(_ context.Context, merchantID int64) { p.pushed = append(p.pushed, merchantID) }

type fakeAlerts struct{ published []notify.Alert }

func (a *fakeAlerts) Enabled() bool { return true }

func (a *fakeAlerts) Publish(_ context.Context, alerts []notify.Alert) error {
	a.published = append(a.published, alerts...)
	return nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	payload    any
}

type fakeEvents struct {
	events []publishedEvent
	err    error
}

func (e *fakeEvents) PublishJSON(_ context.Context, exchange, routingKey string, payload any) error {
	e.events = append(e.events, publishedEvent{exchange, routingKey, payload})
	return e.err
}

func order(id string, minutesAgo float64, total float64, status analytics.OrderStatus) analytics.Order {
	ts := fixedNow.Add(-time.Duration(minutesAgo * float64(time.Minute)))
	return analytics.Order{
		ID:        id,
		Timestamp: ts,
		Total:     total,
		Status:    status,
		Origin:    analytics.OriginDelivery,
		Items: []analytics.OrderItem{
			{ID: "p1", Name: "Pizza", Category: "Pizzas", Quantity: 1, Price: total},
		},
	}
}

func newService(repo *fakeRepo) (*Analytics, *fakePusher, *fakeAlerts, *fakeEvents) {
	pusher := &fakePusher{}
	alerts := &fakeAlerts{}
	events := &fakeEvents{}
	svc := NewAnalytics(Options{
		Repo:     repo,
		Cache:    cache.NewMemory(),
		Engine:   analytics.NewEngine(analytics.DefaultTuning(), time.UTC),
		CacheTTL: time.Minute,
		Metrics:  metrics.New(),
		Live:     pusher,
		Alerts:   alerts,
		Events:   events,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc, pusher, alerts, events
}

func TestMetricsCachesPerWindow(t *testing.T) {
	repo := &fakeRepo{orders: map[int64][]analytics.Order{
		1: {order("a", 30, 100, analytics.StatusDelivered), order("b", 60, 50, analytics.StatusDelivered)},
	}}
	svc, _, _, _ := newService(repo)
	ctx := context.Background()

	first, err := svc.Metrics(ctx, 1, analytics.Query{Period: analytics.PeriodToday})
	require.NoError(t, err)
	assert.Equal(t, 150.0, first.TotalRevenue)
	assert.Equal(t, 2, first.TotalCount)

	second, err := svc.Metrics(ctx, 1, analytics.Query{Period: "today"})
	require.NoError(t, err)
	assert.Equal(t, first.TotalRevenue, second.TotalRevenue)
	assert.Equal(t, 1, repo.calls)

	_, err = svc.Metrics(ctx, 1, analytics.Query{Period: analytics.Period7Days})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), repo.windows[1].Start)
}

func TestMetricsRejectsMissingMerchant(t *testing.T) {
	svc, _, _, _ := newService(&fakeRepo{})
	_, err := svc.Metrics(context.Background(), 0, analytics.Query{})
	assert.Error(t, err)
}

func TestMetricsWrapsRepositoryErrors(t *testing.T) {
	svc, _, _, _ := newService(&fakeRepo{err: errors.New("db down")})
	_, err := svc.Metrics(context.Background(), 1, analytics.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestHandleOrderEventRefreshesEverything(t *testing.T) {
	orders := []analytics.Order{order("a", 10, 100, analytics.StatusDelivered)}
	for i := 0; i < 3; i++ {
		orders = append(orders, order("c"+string(rune('0'+i)), 20, 10, analytics.StatusCancelled))
	}
	repo := &fakeRepo{orders: map[int64][]analytics.Order{5: orders}}
	svc, pusher, alerts, events := newService(repo)
	ctx := context.Background()

	_, err := svc.Metrics(ctx, 5, analytics.Query{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	err = svc.HandleOrderEvent(ctx, queue.OrderEvent{Type: queue.EventOrderStatusUpdated, OrderID: 9, MerchantID: 5})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls, "cache invalidated before recompute")
	assert.Equal(t, []int64{5}, pusher.pushed)
	require.Len(t, alerts.published, 1)
	assert.True(t, strings.HasPrefix(alerts.published[0].Message, "3 pedidos cancelados"))

	require.Len(t, events.events, 1)
	assert.Equal(t, queue.EventsExchange, events.events[0].exchange)
	assert.Equal(t, queue.AnalyticsUpdatedRK, events.events[0].routingKey)
	update, ok := events.events[0].payload.(queue.MetricsUpdated)
	require.True(t, ok)
	assert.Equal(t, int64(5), update.MerchantID)
	assert.Equal(t, 1, update.Alerts)
	assert.Equal(t, 100.0, update.TotalRevenue)
}

func TestHandleOrderEventToleratesPublishFailure(t *testing.T) {
	repo := &fakeRepo{orders: map[int64][]analytics.Order{5: nil}}
	svc, _, _, events := newService(repo)
	events.err = errors.New("broker gone")

	err := svc.HandleOrderEvent(context.Background(), queue.OrderEvent{Type: queue.EventOrderCreated, MerchantID: 5})
	assert.NoError(t, err)
}

func TestHandleOrderEventReturnsStoreErrors(t *testing.T) {
	svc, pusher, _, _ := newService(&fakeRepo{err: errors.New("db down")})
	err := svc.HandleOrderEvent(context.Background(), queue.OrderEvent{Type: queue.EventOrderCreated, MerchantID: 5})
	assert.Error(t, err)
	assert.Empty(t, pusher.pushed)
}

func TestComputeUsesServiceClock(t *testing.T) {
	svc, _, _, _ := newService(&fakeRepo{})
	result := svc.Compute([]analytics.Order{order("a", 5, 42, analytics.StatusDelivered)}, analytics.Query{})
	assert.Equal(t, 42.0, result.TotalRevenue)
	assert.Equal(t, fixedNow, result.GeneratedAt)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) PutObject(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return "https://cdn.test/" + key, nil
}

func (m *memObjects) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memObjects) DeleteKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Link(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func TestSnapshotterCreateAndList(t *testing.T) {
	repo := &fakeRepo{orders: map[int64][]analytics.Order{2: {order("a", 10, 80, analytics.StatusDelivered)}}}
	svc, _, _, _ := newService(repo)
	objects := newMemObjects()
	snaps := NewSnapshotter(svc, storage.NewArchive(objects), 30, nil)

	snap, err := snaps.Create(context.Background(), 2, analytics.Query{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", snap.Date)
	for _, ext := range []string{"json", "pdf", "csv", "parquet"} {
		file, ok := snap.Files[ext]
		require.True(t, ok, ext)
		assert.True(t, strings.HasPrefix(file.Key, "analytics/2/2026-03-15/"), file.Key)
	}

	listed, err := snaps.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, snap.ID, listed[0].ID)
}

func TestSnapshotterCreateAllPrunesOldSnapshots(t *testing.T) {
	repo := &fakeRepo{orders: map[int64][]analytics.Order{
		1: {order("a", 10, 80, analytics.StatusDelivered)},
		2: {order("b", 10, 20, analytics.StatusDelivered)},
	}}
	svc, _, _, _ := newService(repo)
	objects := newMemObjects()
	objects.objects["analytics/1/2025-01-01/old.json"] = []byte("{}")
	snaps := NewSnapshotter(svc, storage.NewArchive(objects), 30, nil)

	run, err := snaps.CreateAll(context.Background(), analytics.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, run.Merchants)
	assert.Equal(t, 2, run.Created)
	assert.Empty(t, run.Failed)
	assert.Equal(t, 1, run.Pruned)
	_, stillThere := objects.objects["analytics/1/2025-01-01/old.json"]
	assert.False(t, stillThere)
}

func TestSnapshotterDisabled(t *testing.T) {
	svc, _, _, _ := newService(&fakeRepo{})
	snaps := NewSnapshotter(svc, nil, 0, nil)
	assert.False(t, snaps.Enabled())
	_, err := snaps.Create(context.Background(), 1, analytics.Query{})
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = snaps.CreateAll(context.Background(), analytics.Query{})
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
