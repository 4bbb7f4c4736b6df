package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTopology struct {
	exchanges map[string]string
	queues    map[string]amqp.Table
	bindings  []string
}

func newFakeTopology() *fakeTopology {
	return &fakeTopology{exchanges: map[string]string{}, queues: map[string]amqp.Table{}}
}

func (f *fakeTopology) EnsureExchangeKind(name, kind string) error {
	f.exchanges[name] = kind
	return nil
}

func (f *fakeTopology) EnsureQueueWithArgs(name string, args amqp.Table) (amqp.Queue, error) {
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopology) BindQueue(queueName, exchange, routingKey string) error {
	f.bindings = append(f.bindings, exchange+"->"+queueName+"@"+routingKey)
	return nil
}

type recordingHandler struct {
	events []OrderEvent
	err    error
}

func (h *recordingHandler) HandleOrderEvent(_ context.Context, evt OrderEvent) error {
	h.events = append(h.events, evt)
	return h.err
}

type staticResolver struct {
	merchantID int64
	err        error
}

func (r staticResolver) MerchantForOrder(context.Context, int64) (int64, error) {
	return r.merchantID, r.err
}

func TestEnsureAnalyticsTopology(t *testing.T) {
	topo := newFakeTopology()
	require.NoError(t, EnsureAnalyticsTopology(topo))

	assert.Equal(t, "topic", topo.exchanges[EventsExchange])
	assert.Equal(t, "direct", topo.exchanges[AnalyticsExchange])
	assert.Equal(t, AnalyticsExchange, topo.queues[AnalyticsEventsQueue]["x-dead-letter-exchange"])
	assert.Contains(t, topo.bindings, "genfity.events->analytics.order_events@order.#")
	assert.Contains(t, topo.bindings, "genfity.analytics->analytics.order_events.dlq@dead")
}

func TestProcessOrderEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("status update", func(t *testing.T) {
		h := &recordingHandler{}
		require.NoError(t, ProcessOrderEvent(ctx, nil, h, []byte(`{"type":"order.status.updated","orderId":"12","merchantId":3,"status":"COMPLETED"}`)))
		require.Len(t, h.events, 1)
		assert.Equal(t, int64(12), h.events[0].OrderID)
		assert.Equal(t, int64(3), h.events[0].MerchantID)
	})

	t.Run("irrelevant and malformed are dropped", func(t *testing.T) {
		h := &recordingHandler{}
		require.NoError(t, ProcessOrderEvent(ctx, nil, h, []byte(`{"type":"menu.updated","merchantId":3}`)))
		require.NoError(t, ProcessOrderEvent(ctx, nil, h, []byte(`not json`)))
		require.NoError(t, ProcessOrderEvent(ctx, nil, h, []byte(`{"type":"order.created","orderId":"abc"}`)))
		assert.Empty(t, h.events)
	})

	t.Run("merchant resolved from order", func(t *testing.T) {
		h := &recordingHandler{}
		require.NoError(t, ProcessOrderEvent(ctx, staticResolver{merchantID: 8}, h, []byte(`{"type":"order.created","orderId":44}`)))
		require.Len(t, h.events, 1)
		assert.Equal(t, int64(8), h.events[0].MerchantID)
	})

	t.Run("resolver failure is retried", func(t *testing.T) {
		h := &recordingHandler{}
		err := ProcessOrderEvent(ctx, staticResolver{err: errors.New("db down")}, h, []byte(`{"type":"order.created","orderId":44}`))
		assert.Error(t, err)
		assert.Empty(t, h.events)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		h := &recordingHandler{err: errors.New("boom")}
		assert.Error(t, ProcessOrderEvent(ctx, nil, h, []byte(`{"type":"order.created","orderId":1,"merchantId":2}`)))
	})
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 0, getRetryCount(nil))
	assert.Equal(t, 3, getRetryCount(amqp.Table{retryHeader: int32(3)}))
	assert.Equal(t, 4, getRetryCount(amqp.Table{retryHeader: int64(4)}))
	assert.Equal(t, 0, getRetryCount(amqp.Table{retryHeader: "5"}))
}
