package event

import (
	"sync"
)

// Handler receives events for a subscribed request.
type Handler[T any] func(*Event[T])

type subscription[T any] struct {
	id      uint64
	handler Handler[T]
}

// Broker routes events to subscribers by request id. Events for requests
// without subscribers are dropped.
type Broker[T any] struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[string][]*subscription[T]
	final       func(*Event[T]) bool
}

// NewBroker creates a broker; final, when set, identifies terminal events
// after which the request subscribers are released.
func NewBroker[T any](final func(*Event[T]) bool) *Broker[T] {
	return &Broker[T]{subscribers: make(map[string][]*subscription[T]), final: final}
}

// Subscribe registers handler for requestID and returns an unsubscribe func.
func (b *Broker[T]) Subscribe(requestID string, handler Handler[T]) func() {
	b.mu.Lock()
	b.nextID++
	sub := &subscription[T]{id: b.nextID, handler: handler}
	b.subscribers[requestID] = append(b.subscribers[requestID], sub)
	b.mu.Unlock()
	return func() { b.remove(requestID, sub.id) }
}

// Handle delivers event to the subscribers of its request.
func (b *Broker[T]) Handle(event *Event[T]) {
	requestID := event.RequestID()
	b.mu.RLock()
	subs := append([]*subscription[T](nil), b.subscribers[requestID]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.handler(event)
	}
	if b.final != nil && b.final(event) {
		b.mu.Lock()
		delete(b.subscribers, requestID)
		b.mu.Unlock()
	}
}

// Subscribers returns the number of subscribers of requestID.
func (b *Broker[T]) Subscribers(requestID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[requestID])
}

func (b *Broker[T]) remove(requestID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[requestID]
	for i, sub := range subs {
		if sub.id == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subscribers, requestID)
		return
	}
	b.subscribers[requestID] = subs
}
