// Package event carries typed events from publishers to listeners over a
// messaging queue and fans them out to per-request subscribers.
package event

import (
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
)

// Event types.
const (
	TypeProgress = "progress"
	TypeStream   = "stream"
	TypeResult   = "result"
	TypeError    = "error"
)

// Context identifies the request an event belongs to.
type Context struct {
	RequestID string `json:"requestId"`
	Pathway   string `json:"pathway,omitempty"`
	EventType string `json:"eventType"`
}

// Event wraps a typed payload with its origin.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}

// RequestID returns the request id or an empty string.
func (e *Event[T]) RequestID() string {
	if e == nil || e.Context == nil {
		return ""
	}
	return e.Context.RequestID
}
