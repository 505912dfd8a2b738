package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"roster/internal/platform/kafka/producer"
)

// Sink delivers audit events to their destination.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// KafkaSink serializes events as JSON onto a Kafka topic, keyed by the
// affected entity so per-entity history stays ordered within a partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.Entity + ":" + event.EntityID),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

// NoopSink discards events. Used when Kafka is not configured and in tests.
type NoopSink struct{}

func (NoopSink) Publish(context.Context, Event) error { return nil }

var (
	_ Sink = (*KafkaSink)(nil)
	_ Sink = NoopSink{}
)
