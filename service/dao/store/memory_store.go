// Package store provides a generic in-memory dao.Service.
package store

import (
	"context"
	"sync"

	"github.com/juicer-platform/cortex/service/dao"
)

// MemoryStore keeps entities of *T mapped by the key returned from
// keySelector. It is safe for concurrent use.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns a record by key or dao.ErrNotFound.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return v, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns all stored records in no particular order.
func (s *MemoryStore[K, T]) List(_ context.Context) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, v)
	}
	return out, nil
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)
