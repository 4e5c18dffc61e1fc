// Package messaging defines the queue abstraction used to hand progress
// events and dispatch jobs between producers and worker goroutines.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by queues that no longer accept or deliver messages.
	ErrClosed = errors.New("messaging: queue closed")
	// ErrFull is returned by Offer when the queue has no free buffer space.
	ErrFull = errors.New("messaging: queue full")
)

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Offerer is implemented by queues that can refuse a message instead of
// waiting for buffer space.
type Offerer[T any] interface {
	Offer(ctx context.Context, t *T) error
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// ID returns the message identifier
	ID() string

	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}
