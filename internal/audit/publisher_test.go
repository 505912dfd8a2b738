package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestPublisher_SyncEmit(t *testing.T) {
	sink := &captureSink{}
	p := NewPublisher(sink)

	err := p.Emit(context.Background(), Event{
		Action:   ActionUserCreated,
		Entity:   "user",
		EntityID: "abc",
	})
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, ActionUserCreated, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be defaulted")
}

func TestPublisher_AsyncEmitDrains(t *testing.T) {
	sink := &captureSink{}
	p := NewPublisher(sink, WithAsyncBuffer(16))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Emit(context.Background(), Event{
			Action: ActionLoginSucceeded,
			Entity: "user",
		}))
	}
	p.Close()

	assert.Len(t, sink.all(), 5)
}

func TestPublisher_PreservesExplicitTimestamp(t *testing.T) {
	sink := &captureSink{}
	p := NewPublisher(sink)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.Emit(context.Background(), Event{
		Action:    ActionLogout,
		Entity:    "user",
		Timestamp: ts,
	}))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, ts, events[0].Timestamp)
}
