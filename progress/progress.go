// Package progress keeps the unit counters of a single request and defines
// the progress event published to asynchronous subscribers.
package progress

import (
	"sync"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
)

// Delta represents an incremental counter change. Fields are signed.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
}

// Snapshot is a point in time copy of the counters of a request.
type Snapshot struct {
	RequestID string
	StartedAt time.Time

	Total     int
	Completed int
	Skipped   int
}

// Ratio returns completed/total, or zero when nothing was planned.
func (s Snapshot) Ratio() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Done reports whether every planned unit completed.
func (s Snapshot) Done() bool {
	return s.Total > 0 && s.Completed >= s.Total
}

// Progress keeps aggregated unit counters for one request. It is safe for
// concurrent use; Completed never exceeds Total. Read it through Snapshot.
type Progress struct {
	mu      sync.Mutex
	current Snapshot
}

// New creates a tracker for requestID.
func New(requestID string) *Progress {
	return &Progress{current: Snapshot{RequestID: requestID, StartedAt: clock.Now()}}
}

// Update applies the supplied delta and returns the updated counters.
func (p *Progress) Update(d Delta) Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c := &p.current
	c.Total += d.Total
	c.Completed += d.Completed
	c.Skipped += d.Skipped
	if c.Total < 0 {
		c.Total = 0
	}
	if c.Completed > c.Total {
		c.Completed = c.Total
	}
	return *c
}

// Reset sets the unit total and clears the counters.
func (p *Progress) Reset(total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.current.Total = total
	p.current.Completed = 0
	p.current.Skipped = 0
	p.mu.Unlock()
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
