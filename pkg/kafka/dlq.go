package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopic returns the dead-letter topic for topic, e.g.
// sellertrust.dlq.sellertrust.review.accepted.
func DLQTopic(topic string) string {
	return TopicPrefix + ".dlq." + topic
}

// Header keys a dead-lettered message carries besides its own headers.
const (
	HeaderDLQTopic     = "dlq.original_topic"
	HeaderDLQPartition = "dlq.original_partition"
	HeaderDLQOffset    = "dlq.original_offset"
	HeaderDLQGroup     = "dlq.consumer_group"
	HeaderDLQError     = "dlq.error"
	HeaderDLQFailedAt  = "dlq.failed_at"
)

// DLQProducer parks messages a consumer gave up on so they can be inspected
// and replayed.
type DLQProducer struct {
	writer  messageWriter
	metrics *Metrics
	logger  *slog.Logger
}

// NewDLQProducer creates a DLQ producer writing one message per request.
func NewDLQProducer(brokers []string, metrics *Metrics, logger *slog.Logger) *DLQProducer {
	return &DLQProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			BatchSize:    1,
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// deadLetter copies msg onto its dead-letter topic. The key is kept so the
// parked events of one seller stay ordered.
func deadLetter(msg kafka.Message, cause error, group string, now time.Time) kafka.Message {
	headers := append(make([]kafka.Header, 0, len(msg.Headers)+6), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderDLQTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderDLQPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderDLQOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderDLQGroup, Value: []byte(group)},
		kafka.Header{Key: HeaderDLQFailedAt, Value: []byte(now.UTC().Format(time.RFC3339Nano))},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: HeaderDLQError, Value: []byte(cause.Error())})
	}
	return kafka.Message{
		Topic:   DLQTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}

// Publish parks msg with the error that made group give up on it.
func (d *DLQProducer) Publish(ctx context.Context, msg kafka.Message, cause error, group string) error {
	parked := deadLetter(msg, cause, group, time.Now())

	if err := d.writer.WriteMessages(ctx, parked); err != nil {
		d.logger.ErrorContext(ctx, "failed to park message on dead-letter topic",
			slog.String("dlq_topic", parked.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish to %s: %w", parked.Topic, err)
	}

	d.metrics.consumedMessage(msg.Topic, group, outcomeDeadLettered)
	d.logger.WarnContext(ctx, "message parked on dead-letter topic",
		slog.String("dlq_topic", parked.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("consumer_group", group),
	)
	return nil
}

// Close closes the DLQ producer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
