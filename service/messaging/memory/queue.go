// Package memory provides a buffered in-process messaging.Queue with
// retries and a dead letter list.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/internal/idgen"
	"github.com/juicer-platform/cortex/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 1024,
	}
}

// Message is an in-memory queue entry.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	createdAt time.Time
	lastErr   error

	mu        sync.Mutex
	processed bool
}

// ID returns the message identifier.
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T { return &m.payload }

// Err returns the error recorded by the last Nack.
func (m *Message[T]) Err() error { return m.lastErr }

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	return m.settle()
}

// Nack requeues the message after RetryDelay until MaxRetries is exceeded,
// then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	if sErr := m.settle(); sErr != nil {
		return sErr
	}
	q := m.queue
	next := &Message[T]{id: m.id, payload: m.payload, queue: q, attempt: m.attempt + 1, createdAt: clock.Now(), lastErr: err}
	if next.attempt <= q.config.MaxRetries {
		go func() {
			select {
			case <-time.After(q.config.RetryDelay):
			case <-q.done:
				return
			}
			select {
			case q.messages <- next:
			case <-q.done:
			}
		}()
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, next)
		q.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages  chan *Message[T]
	done      chan struct{}
	closeOnce sync.Once
	config    Config

	dlqMu sync.Mutex
	dlq   []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		done:     make(chan struct{}),
		config:   config,
	}
}

// Publish adds a new item to the queue, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	select {
	case <-q.done:
		return messaging.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q, createdAt: clock.Now()}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return messaging.ErrClosed
	}
}

// Offer adds a new item without waiting; messaging.ErrFull is returned when
// the buffer is full.
func (q *Queue[T]) Offer(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	select {
	case <-q.done:
		return messaging.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q, createdAt: clock.Now()}
	select {
	case q.messages <- msg:
		return nil
	default:
		return messaging.ErrFull
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, messaging.ErrClosed
	}
}

// Close stops delivery; pending messages are dropped.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns a copy of the dead letter list.
func (q *Queue[T]) DeadLetters() []*Message[T] {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]*Message[T](nil), q.dlq...)
}

var (
	_ messaging.Queue[any]   = (*Queue[any])(nil)
	_ messaging.Offerer[any] = (*Queue[any])(nil)
)
