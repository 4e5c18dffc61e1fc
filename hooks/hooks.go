// Package hooks declares the capitan signals and field keys emitted during
// request processing. Applications observe them with capitan.Hook.
package hooks

import "github.com/zoobzio/capitan"

// Request lifecycle signals.
var (
	RequestStarted   = capitan.NewSignal("cortex.request.started", "A request began processing")
	RequestPlanned   = capitan.NewSignal("cortex.request.planned", "The input was chunked and the unit total fixed")
	RequestCompleted = capitan.NewSignal("cortex.request.completed", "A request produced its result")
	RequestFailed    = capitan.NewSignal("cortex.request.failed", "A request failed")
	RequestCanceled  = capitan.NewSignal("cortex.request.canceled", "A request stopped after cancellation")
	InputTruncated   = capitan.NewSignal("cortex.input.truncated", "Unchunked input exceeded the token ceiling and was truncated")
	InputSummarized  = capitan.NewSignal("cortex.input.summarized", "The input was replaced by its summary")
	StreamMalformed  = capitan.NewSignal("cortex.stream.malformed", "A stream line could not be decoded and was skipped")
	ModelCallStarted = capitan.NewSignal("cortex.model.call.started", "A backend call was sent")
	ModelCallFailed  = capitan.NewSignal("cortex.model.call.failed", "A backend call failed")
	ModelCallDone    = capitan.NewSignal("cortex.model.call.completed", "A backend call returned")
	ModelCallCached  = capitan.NewSignal("cortex.model.call.cached", "A backend call was answered from the response cache")
)

// Field keys.
var (
	RequestIDKey = capitan.NewStringKey("cortex.request.id")
	PathwayKey   = capitan.NewStringKey("cortex.pathway")
	ModelKey     = capitan.NewStringKey("cortex.model")
	ModeKey      = capitan.NewStringKey("cortex.mode")
	ErrorKey     = capitan.NewStringKey("cortex.error")
	LineKey      = capitan.NewStringKey("cortex.stream.line")

	ChunksKey      = capitan.NewIntKey("cortex.chunks")
	PromptsKey     = capitan.NewIntKey("cortex.prompts")
	TokensKey      = capitan.NewIntKey("cortex.tokens")
	CompletedKey   = capitan.NewIntKey("cortex.completed")
	TotalKey       = capitan.NewIntKey("cortex.total")
	DurationMsKey  = capitan.NewIntKey("cortex.duration.ms")
	StatusCodeKey  = capitan.NewIntKey("cortex.http.status.code")
	TemperatureKey = capitan.NewFloat64Key("cortex.temperature")
)
