package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return (&KafkaHeaderCarrier{headers: &msg.Headers}).Get(key)
}

type acceptedPayload struct {
	SellerID   string  `json:"seller_id"`
	TrustScore float64 `json:"trust_score"`
}

func TestNewEvent_Fields(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	event, err := NewEvent(ctx, "review.accepted", "seller-1", "seller", "sellertrust",
		acceptedPayload{SellerID: "seller-1", TrustScore: 62})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "review.accepted", event.EventType)
	assert.Equal(t, "seller-1", event.AggregateID)
	assert.Equal(t, "seller", event.AggregateType)
	assert.Equal(t, "sellertrust", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var data acceptedPayload
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, 62.0, data.TrustScore)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent(context.Background(), "review.accepted", "s", "seller", "sellertrust", make(chan int))
	require.Error(t, err)
}

func TestUnmarshalEvent(t *testing.T) {
	original, err := NewEvent(context.Background(), "review.accepted", "seller-1", "seller", "sellertrust", map[string]int{"rating": 5})
	require.NoError(t, err)
	raw, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(raw)

	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, EnvelopeVersion, restored.Version)
	assert.JSONEq(t, `{"rating":5}`, string(restored.Data))
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":        "{bad",
		"missing type":     `{"event_id":"x"}`,
		"negative version": `{"event_id":"x","event_type":"review.accepted","version":-1}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalEvent([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestUnmarshalEvent_DefaultsVersion(t *testing.T) {
	e, err := UnmarshalEvent([]byte(`{"event_id":"x","event_type":"review.accepted","data":{}}`))

	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, e.Version)
}

func TestNewEvent_MissingType(t *testing.T) {
	_, err := NewEvent(context.Background(), "", "seller-1", "seller", "sellertrust", nil)
	require.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "sellertrust.review.accepted", Topic("review", "accepted"))
	assert.Equal(t, "sellertrust.dlq.sellertrust.review.accepted", DLQTopic(Topic("review", "accepted")))
}

func TestProducer_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
	ctx = logger.WithCorrelationID(ctx, "corr-9")

	w := &fakeWriter{}
	metrics := NewMetrics(prometheus.NewRegistry(), "test")
	p := &Producer{writer: w, metrics: metrics, logger: testLogger()}

	event, err := NewEvent(ctx, "review.accepted", "seller-1", "seller", "sellertrust", acceptedPayload{SellerID: "seller-1"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "sellertrust.review.accepted", event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "sellertrust.review.accepted", msg.Topic)
	assert.Equal(t, "seller-1", string(msg.Key))
	assert.Equal(t, "review.accepted", header(msg, HeaderEventType))
	assert.Equal(t, "corr-9", header(msg, HeaderCorrelationID))
	assert.Contains(t, header(msg, "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.published.WithLabelValues("sellertrust.review.accepted", "ok")))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	metrics := NewMetrics(prometheus.NewRegistry(), "test")
	p := &Producer{writer: w, metrics: metrics, logger: testLogger()}

	event, err := NewEvent(context.Background(), "review.accepted", "seller-1", "seller", "sellertrust", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "sellertrust.review.accepted", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.published.WithLabelValues("sellertrust.review.accepted", "error")))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"b1:9092", "b2:9092"})
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestDLQProducer_Publish(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, metrics: NewMetrics(reg, "test"), logger: testLogger()}

	orig := kafka.Message{
		Topic:     "sellertrust.review.accepted",
		Partition: 2,
		Offset:    41,
		Key:       []byte("seller-1"),
		Value:     []byte("{bad"),
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("review.accepted")}},
	}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("unmarshal failed"), "sellertrust-cache"))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "sellertrust.dlq.sellertrust.review.accepted", msg.Topic)
	assert.Equal(t, "seller-1", string(msg.Key))
	assert.Equal(t, "{bad", string(msg.Value))
	assert.Equal(t, "review.accepted", header(msg, HeaderEventType))
	assert.Equal(t, "sellertrust.review.accepted", header(msg, HeaderDLQTopic))
	assert.Equal(t, "2", header(msg, HeaderDLQPartition))
	assert.Equal(t, "41", header(msg, HeaderDLQOffset))
	assert.Equal(t, "sellertrust-cache", header(msg, HeaderDLQGroup))
	assert.Equal(t, "unmarshal failed", header(msg, HeaderDLQError))
	failedAt, err := time.Parse(time.RFC3339Nano, header(msg, HeaderDLQFailedAt))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), failedAt, 5*time.Second)

	want := `
# HELP test_kafka_consumer_messages_total Messages taken off a topic by outcome (processed, failed, dead_lettered).
# TYPE test_kafka_consumer_messages_total counter
test_kafka_consumer_messages_total{group="sellertrust-cache",outcome="dead_lettered",topic="sellertrust.review.accepted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "test_kafka_consumer_messages_total"))
}

func TestDLQProducer_WriteFailure(t *testing.T) {
	d := &DLQProducer{writer: &fakeWriter{err: errors.New("broker down")}, logger: testLogger()}

	err := d.Publish(context.Background(), kafka.Message{Topic: "sellertrust.review.accepted"}, nil, "g")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sellertrust.dlq.sellertrust.review.accepted")
}
