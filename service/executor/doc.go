// Package executor performs single model invocations. A Call carries the
// rendered-to-be prompt with its parameters; the default HTTP implementation
// renders templates with pongo2, speaks the OpenAI chat and completion wire
// shapes and wraps every call in a pipz resilience pipeline.
//
// Calls of deterministic pathways (enableCache or a zero temperature) may be
// answered from a Cache when the executor is configured with one.
package executor
