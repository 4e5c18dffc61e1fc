// Package idgen wraps the UUID generator used for request, context and
// message identifiers so that it can be stubbed in tests. Callers treat the
// returned identifiers as opaque strings.
package idgen
