// Package tracing opens OpenTelemetry spans around request stages, model
// calls and dispatched jobs. Spans are no-ops until Init or Install sets up
// a provider.
package tracing
