// Package metrics implements spec.md §4.8's metrics pipeline: typed events,
// a Collector interface, and the Aggregate/Composite/Filtered/Recording
// compositions (plus an OpenTelemetry-backed collector, SPEC_FULL §5.8).
package metrics

import (
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/cache"
	"github.com/fluxhttp/flux/fluxerr"
)

// RequestEvent records one completed request/response round trip.
type RequestEvent struct {
	Method       flux.Method
	URL          string
	Status       int
	Start        time.Time
	End          time.Time
	ResponseSize int
	Tags         map[string]string
}

// Duration is End minus Start.
func (e RequestEvent) Duration() time.Duration { return e.End.Sub(e.Start) }

// Successful reports whether Status is a 2xx, per flux's isSuccessful rule.
func (e RequestEvent) Successful() bool { return e.Status >= 200 && e.Status < 300 }

// ErrorEvent records a request that failed before producing a usable
// response.
type ErrorEvent struct {
	Method flux.Method
	URL    string
	Kind   fluxerr.Kind
	Start  time.Time
	End    time.Time
	Tags   map[string]string
}

// Duration is End minus Start.
func (e ErrorEvent) Duration() time.Duration { return e.End.Sub(e.Start) }

// RetryEvent records one retried attempt from the retry interceptor.
type RetryEvent struct {
	Method  flux.Method
	URL     string
	Attempt int
	Reason  string
}

// CacheEvent records one cache policy outcome.
type CacheEvent struct {
	Method flux.Method
	URL    string
	Result cache.Result
}

// Collector is implemented by anything that wants to observe flux's event
// stream. Every method must return promptly — a slow collector should do
// its own buffering/async dispatch internally.
type Collector interface {
	RecordRequest(RequestEvent)
	RecordError(ErrorEvent)
	RecordRetry(RetryEvent)
	RecordCache(CacheEvent)
}
