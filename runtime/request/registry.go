package request

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
)

var (
	// ErrNotFound is returned when no record exists for a request id.
	ErrNotFound = errors.New("request: not found")
	// ErrNotDeferred is returned when dispatching a request without a pending entry.
	ErrNotDeferred = errors.New("request: nothing to dispatch")
)

// Config controls record retention.
type Config struct {
	// GracePeriod keeps finished records readable before eviction.
	GracePeriod time.Duration `json:"gracePeriod" yaml:"gracePeriod"`
	// MaxAge evicts records that never began, e.g. never subscribed async
	// requests; zero disables. Running requests are kept.
	MaxAge time.Duration `json:"maxAge" yaml:"maxAge"`
	// SweepInterval is the janitor period.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
}

// DefaultConfig returns the default retention settings.
func DefaultConfig() Config {
	return Config{
		GracePeriod:   5 * time.Minute,
		MaxAge:        time.Hour,
		SweepInterval: time.Minute,
	}
}

// Registry is an in-memory request state store safe for concurrent use.
type Registry struct {
	config Config
	mu     sync.RWMutex
	states map[string]*State
}

// NewRegistry creates a registry.
func NewRegistry(config Config) *Registry {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Registry{config: config, states: make(map[string]*State)}
}

// Ensure returns the record for id, creating it when missing.
func (r *Registry) Ensure(id string) *State {
	r.mu.RLock()
	s, ok := r.states[id]
	r.mu.RUnlock()
	if ok {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.states[id]; ok {
		return s
	}
	s = newState(id)
	r.states[id] = s
	return s
}

// Get returns the record for id or nil.
func (r *Registry) Get(id string) *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[id]
}

// Link records that id is a nested sub-request of parentID.
func (r *Registry) Link(id, parentID, pathway string) *State {
	s := r.Ensure(id)
	s.mu.Lock()
	s.ParentID = parentID
	s.Pathway = pathway
	s.mu.Unlock()
	return s
}

// Begin sets the planned unit total, clears the counters and marks the
// record in flight until it is done.
func (r *Registry) Begin(id string, total int) *progress.Progress {
	s := r.Ensure(id)
	s.mu.Lock()
	s.begun = true
	s.mu.Unlock()
	s.Progress.Reset(total)
	return s.Progress
}

// Complete increments the completed counter and returns the snapshot.
func (r *Registry) Complete(id string) progress.Snapshot {
	return r.Ensure(id).Progress.Update(progress.Delta{Completed: 1})
}

// Skip counts a unit abandoned because of cancellation.
func (r *Registry) Skip(id string) progress.Snapshot {
	return r.Ensure(id).Progress.Update(progress.Delta{Skipped: 1})
}

// Cancel sets the cancel flag on the record for id, creating it if needed.
// Counters, data and deferred entries are preserved. Cancel is idempotent.
func (r *Registry) Cancel(id string) {
	s := r.Ensure(id)
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// Canceled reports whether id or any of its ancestors is canceled.
func (r *Registry) Canceled(id string) bool {
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		seen[id] = true
		s := r.Get(id)
		if s == nil {
			return false
		}
		if s.Canceled() {
			return true
		}
		s.mu.Lock()
		id = s.ParentID
		s.mu.Unlock()
	}
	return false
}

// Defer registers an asynchronous entry with its arguments.
func (r *Registry) Defer(id string, args *model.Args, fn Deferred) {
	s := r.Ensure(id)
	s.mu.Lock()
	s.args = args
	s.deferred = fn
	s.dispatched = false
	s.mu.Unlock()
}

// Dispatch runs the deferred entry of id exactly once and marks the record
// done afterwards.
func (r *Registry) Dispatch(ctx context.Context, id string) error {
	s := r.Get(id)
	if s == nil {
		return ErrNotFound
	}
	s.mu.Lock()
	fn := s.deferred
	if fn == nil || s.dispatched {
		s.mu.Unlock()
		return ErrNotDeferred
	}
	s.dispatched = true
	s.mu.Unlock()

	defer s.MarkDone()
	return fn(ctx)
}

// Finish records the result and marks the record done.
func (r *Registry) Finish(id string, data interface{}) {
	s := r.Ensure(id)
	s.SetData(data)
	s.MarkDone()
}

// Sweep evicts expired records and returns their number.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.states {
		if s.expired(now, r.config.GracePeriod, r.config.MaxAge) {
			delete(r.states, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Start runs the eviction janitor until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(clock.Now())
			}
		}
	}()
}
