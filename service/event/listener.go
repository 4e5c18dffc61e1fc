package event

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/juicer-platform/cortex/service/messaging"
)

// Listener consumes events from a publisher on a single goroutine, so the
// handler observes events in publish order.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewListener creates a listener.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{publisher: publisher, handler: handler}
}

// Start launches the consume loop; it stops when ctx is done or Stop is called.
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, messaging.ErrClosed) {
					return
				}
				log.Printf("error consuming event: %v", err)
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}

// Stop cancels the consume loop and waits for it to exit.
func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}
