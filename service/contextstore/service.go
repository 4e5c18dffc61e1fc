// Package contextstore persists saved contexts: key/value maps addressed by a
// context id that carry values across prompts and across requests.
package contextstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/service/dao"
	"github.com/juicer-platform/cortex/service/dao/store"
)

// Record is a persisted saved context.
type Record struct {
	ID        string                 `json:"id"`
	Values    map[string]interface{} `json:"values"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Service reads and writes saved contexts.
type Service interface {
	// Get returns the values for id, or an empty map when none were saved.
	Get(ctx context.Context, id string) (map[string]interface{}, error)
	// Set replaces the values for id.
	Set(ctx context.Context, id string, values map[string]interface{}) error
}

// Store adapts a dao.Service of records to Service.
type Store struct {
	dao dao.Service[string, Record]
}

// New creates a store backed by d.
func New(d dao.Service[string, Record]) *Store {
	return &Store{dao: d}
}

// NewMemory creates an in-memory store.
func NewMemory() *Store {
	return New(store.NewMemoryStore[string, Record](func(r *Record) string { return r.ID }))
}

// Get implements Service.
func (s *Store) Get(ctx context.Context, id string) (map[string]interface{}, error) {
	if id == "" {
		return map[string]interface{}{}, nil
	}
	record, err := s.dao.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("failed to load context %v: %w", id, err)
	}
	return copyValues(record.Values), nil
}

// Set implements Service.
func (s *Store) Set(ctx context.Context, id string, values map[string]interface{}) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	record := &Record{ID: id, Values: copyValues(values), UpdatedAt: clock.Now()}
	if err := s.dao.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save context %v: %w", id, err)
	}
	return nil
}

func copyValues(values map[string]interface{}) map[string]interface{} {
	ret := make(map[string]interface{}, len(values))
	for k, v := range values {
		ret[k] = v
	}
	return ret
}
