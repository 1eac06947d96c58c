package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what producers and consumers do with messages. A nil
// *Metrics records nothing.
type Metrics struct {
	consumed   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	published  *prometheus.CounterVec
}

// NewMetrics registers the Kafka collectors on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		consumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_messages_total",
			Help:      "Messages taken off a topic by outcome (processed, failed, dead_lettered).",
		}, []string{"topic", "group", "outcome"}),
		duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_duplicates_total",
			Help:      "Redelivered events skipped by the idempotency store.",
		}, []string{"event_type"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_producer_messages_total",
			Help:      "Publish attempts by outcome (ok, error).",
		}, []string{"topic", "outcome"}),
	}
}

const (
	outcomeProcessed    = "processed"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
)

func (m *Metrics) consumedMessage(topic, group, outcome string) {
	if m != nil {
		m.consumed.WithLabelValues(topic, group, outcome).Inc()
	}
}

func (m *Metrics) duplicate(eventType string) {
	if m != nil {
		m.duplicates.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) publishedMessage(topic string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.published.WithLabelValues(topic, outcome).Inc()
}
