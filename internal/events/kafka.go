package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"cvxlab/internal/cverrors"
)

// KafkaBus publishes events to a Kafka (or Redpanda) topic, one message
// per lifecycle event, keyed by scenario so a downstream consumer can
// reassemble one scenario's timeline from partition order alone.
type KafkaBus struct {
	writer *kafka.Writer
}

// NewKafkaBus configures a low-latency async writer against brokers.
func NewKafkaBus(brokers []string, topic string) *KafkaBus {
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			Compression:  kafka.Snappy,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				log.Printf("[events] kafka write error: "+msg, args...)
			}),
		},
	}
}

func (b *KafkaBus) Publish(ctx context.Context, event Event) error {
	payload, err := marshalEvent(event)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "marshaling event %s", event.Kind)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("scenario-%d", event.Scenario)),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "problem", Value: []byte(event.Problem)},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "publishing event %s", event.Kind)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
