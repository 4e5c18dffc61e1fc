package idgen

import "github.com/google/uuid"

// NewFunc generates identifiers; tests may replace it to get stable ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// Stub replaces NewFunc with a deterministic sequence and returns a restore
// function. Once ids is exhausted the last value is repeated.
func Stub(ids ...string) (restore func()) {
	prev := NewFunc
	i := 0
	NewFunc = func() string {
		if len(ids) == 0 {
			return prev()
		}
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
	return func() { NewFunc = prev }
}
