package event

import (
	"context"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/service/messaging"
)

// Publisher publishes events of T to a queue.
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher.
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues an event.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = clock.Now()
	return p.queue.Publish(ctx, event)
}

// Offer stamps and enqueues an event without waiting for buffer space when
// the queue supports it, otherwise it publishes.
func (p *Publisher[T]) Offer(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = clock.Now()
	if offerer, ok := p.queue.(messaging.Offerer[Event[T]]); ok {
		return offerer.Offer(ctx, event)
	}
	return p.queue.Publish(ctx, event)
}

// Consume dequeues and acknowledges the next event.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
