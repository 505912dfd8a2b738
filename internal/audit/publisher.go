package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher captures structured audit events. It delegates delivery to a
// Sink so tests can swap destinations easily.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and delivered in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Publish(context.Background(), event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to publish audit event",
					"error", err,
					"action", event.Action,
					"entity_id", event.EntityID,
				)
			}
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit records an event. In async mode the send is non-blocking; the event is
// dropped if the buffer is full to keep the hot path unblocked.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.async {
		select {
		case p.events <- event:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", event.Action,
					"entity_id", event.EntityID,
				)
			}
			return nil
		}
	}
	return p.sink.Publish(ctx, event)
}
