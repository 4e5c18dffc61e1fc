// Package request hosts the request state registry: a process-wide store of
// per-request progress counters, cancellation flags, results and deferred
// asynchronous entries. Records are created lazily on first access, so a
// cancel may arrive before the request itself, and are evicted after a grace
// period once done.
package request
