package request

import (
	"context"
	"sync"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
)

// Deferred is an asynchronous entry registered for later dispatch.
type Deferred func(ctx context.Context) error

// State is the registry record of a single request.
type State struct {
	ID       string
	ParentID string
	Pathway  string

	Progress  *progress.Progress
	CreatedAt time.Time

	mu         sync.Mutex
	canceled   bool
	data       interface{}
	args       *model.Args
	deferred   Deferred
	dispatched bool
	begun      bool
	doneAt     *time.Time
}

func newState(id string) *State {
	return &State{
		ID:        id,
		Progress:  progress.New(id),
		CreatedAt: clock.Now(),
	}
}

// Canceled reports whether this record carries the cancel flag.
func (s *State) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

// Data returns the last recorded result.
func (s *State) Data() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Args returns the arguments captured with the deferred entry.
func (s *State) Args() *model.Args {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.args
}

// SetData records the result.
func (s *State) SetData(data interface{}) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// Deferred reports whether an undispatched entry is pending.
func (s *State) Deferred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deferred != nil && !s.dispatched
}

// MarkDone flags the record as finished; the first call wins.
func (s *State) MarkDone() {
	s.mu.Lock()
	if s.doneAt == nil {
		now := clock.Now()
		s.doneAt = &now
	}
	s.mu.Unlock()
}

// Done reports whether the request finished.
func (s *State) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneAt != nil
}

// InFlight reports whether the request began processing and has not
// finished.
func (s *State) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight()
}

func (s *State) inFlight() bool {
	return s.doneAt == nil && (s.begun || s.dispatched)
}

// expired reports whether the record may be evicted at now. Finished
// records expire after the grace period; in flight records never expire.
func (s *State) expired(now time.Time, gracePeriod, maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doneAt != nil {
		return now.Sub(*s.doneAt) >= gracePeriod
	}
	if s.inFlight() {
		return false
	}
	return maxAge > 0 && now.Sub(s.CreatedAt) >= maxAge
}
