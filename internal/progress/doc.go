// Package progress provides the event primitives, non-blocking hub and emitter
// interface the discovery pipeline uses to report run and conference progress.
// Events are batched on a background goroutine and fanned out to sinks such as
// Prometheus metrics, the structured log or the in-memory run status.
package progress
