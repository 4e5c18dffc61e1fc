package resolver

import "github.com/juicer-platform/cortex/model"

// Mode is the delivery mode of a request.
type Mode int

const (
	// Sync returns the full result to the caller.
	Sync Mode = iota
	// Async returns the request id; the result arrives as a progress event.
	Async
	// Stream returns the request id; backend stream fragments are relayed
	// as incremental progress events.
	Stream
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Async:
		return "async"
	case Stream:
		return "stream"
	}
	return "sync"
}

// ModeOf returns the delivery mode requested by args; async wins over stream.
func ModeOf(args *model.Args) Mode {
	switch {
	case args == nil:
		return Sync
	case args.Async:
		return Async
	case args.Stream:
		return Stream
	}
	return Sync
}

// Response is the outcome of Resolve.
type Response struct {
	RequestID string `json:"requestId"`
	Mode      Mode   `json:"mode"`
	// Result is the pipeline output; empty for deferred modes.
	Result    string   `json:"result,omitempty"`
	ContextID string   `json:"contextId,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	// Debug is a JSON array of the request bodies the pathway prompts render
	// for the unchunked input, when the executor can preview them.
	Debug string `json:"debug,omitempty"`
}
