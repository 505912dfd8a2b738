//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"roster/internal/platform/kafka/producer"
	"roster/pkg/testutil/containers"
)

func TestKafkaSink_DeliversEvent(t *testing.T) {
	ctx := context.Background()
	kc := containers.GetManager().GetKafka(t)

	const topic = "roster.audit.test"
	require.NoError(t, kc.CreateTopic(ctx, topic, 1, 1))

	p, err := producer.New(producer.Config{Brokers: kc.Brokers}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer p.Close()

	sink := NewKafkaSink(p, topic)
	event := Event{
		Timestamp: time.Now().UTC(),
		ActorID:   "actor-1",
		Action:    ActionUserCreated,
		Entity:    "user",
		EntityID:  "user-42",
		Detail:    map[string]string{"username": "ada"},
	}
	require.NoError(t, sink.Publish(ctx, event))

	consumer, err := kc.NewConsumer(ctx, "audit-sink-test", topic)
	require.NoError(t, err)
	defer consumer.Close()

	record := kc.WaitForMessage(ctx, consumer, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "user:user-42"
	})
	require.NotNil(t, record, "audit event should arrive on the topic")

	var got Event
	require.NoError(t, json.Unmarshal(record.Value, &got))
	assert.Equal(t, ActionUserCreated, got.Action)
	assert.Equal(t, "actor-1", got.ActorID)
	assert.Equal(t, "ada", got.Detail["username"])

	var action string
	for _, h := range record.Headers {
		if h.Key == "action" {
			action = string(h.Value)
		}
	}
	assert.Equal(t, string(ActionUserCreated), action)
}
