// Package dispatcher hosts the workers that run deferred asynchronous
// requests. Every worker consumes jobs from a queue and dispatches the
// deferred entry registered for the job's request id.
package dispatcher
