// Package resolver orchestrates a single pathway request: it sizes the
// token budget, chunks the input, runs the prompt pipeline serially or per
// chunk in parallel, tracks progress in the request registry and delivers
// the result synchronously, asynchronously or as a relayed stream.
package resolver
