package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/fluxhttp/flux/cache"
)

// sample is one latency observation retained for the rolling window.
type sample struct {
	at       time.Time
	duration time.Duration
	bytesIn  int
	success  bool
}

// Snapshot is Aggregate's computed view. Count, BytesIn and the latency
// figures cover the current rolling window; ErrorCount, RetryCount,
// CacheHits and CacheMisses are totals since construction and are not
// pruned. BytesOut is always 0: no event carries a request size.
type Snapshot struct {
	Count         int
	ErrorCount    int
	RetryCount    int
	CacheHits     int
	CacheMisses   int
	BytesOut      int64
	BytesIn       int64
	MeanLatency   time.Duration
	MedianLatency time.Duration
	P95Latency    time.Duration
}

// CacheHitRate returns CacheHits / (CacheHits + CacheMisses), or 0 with no
// cache events recorded.
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Aggregate is a Collector that computes a request count, mean/median/p95
// latency, and bytes-in from a time-bounded rolling window, plus running
// error, retry and cache hit/miss totals that the window does not prune.
// Bytes-out is not measured (see Snapshot). Grounded on gomind's resilience.SlidingWindow time-pruning idea (old
// samples drop out as the window advances) but keeping raw latency samples
// rather than fixed buckets, since percentiles need the underlying values.
type Aggregate struct {
	window time.Duration

	mu          sync.Mutex
	samples     []sample
	errorCount  int
	retryCount  int
	cacheHits   int
	cacheMisses int
	bytesOut    int64
}

// NewAggregate constructs an Aggregate collector with the given rolling
// window duration.
func NewAggregate(window time.Duration) *Aggregate {
	return &Aggregate{window: window}
}

func (a *Aggregate) RecordRequest(e RequestEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, sample{
		at:       e.End,
		duration: e.Duration(),
		bytesIn:  e.ResponseSize,
		success:  e.Successful(),
	})
	if !e.Successful() {
		a.errorCount++
	}
	a.prune(e.End)
}

func (a *Aggregate) RecordError(e ErrorEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errorCount++
	a.samples = append(a.samples, sample{at: e.End, duration: e.Duration()})
	a.prune(e.End)
}

func (a *Aggregate) RecordRetry(RetryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retryCount++
}

func (a *Aggregate) RecordCache(e CacheEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch e.Result {
	case cache.ResultHit, cache.ResultRevalidated:
		a.cacheHits++
	case cache.ResultMiss:
		a.cacheMisses++
	}
}

// prune drops samples older than the window, measured from now. Must be
// called with mu held.
func (a *Aggregate) prune(now time.Time) {
	if a.window <= 0 {
		return
	}
	cutoff := now.Add(-a.window)
	i := 0
	for i < len(a.samples) && a.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		a.samples = a.samples[i:]
	}
}

// Snapshot computes the current aggregate view.
func (a *Aggregate) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Count:       len(a.samples),
		ErrorCount:  a.errorCount,
		RetryCount:  a.retryCount,
		CacheHits:   a.cacheHits,
		CacheMisses: a.cacheMisses,
		BytesOut:    a.bytesOut,
	}
	if len(a.samples) == 0 {
		return s
	}

	durations := make([]time.Duration, len(a.samples))
	var total time.Duration
	for i, smp := range a.samples {
		durations[i] = smp.duration
		total += smp.duration
		s.BytesIn += int64(smp.bytesIn)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	s.MeanLatency = total / time.Duration(len(durations))
	s.MedianLatency = percentile(durations, 0.5)
	s.P95Latency = percentile(durations, 0.95)
	return s
}

// percentile assumes sorted is sorted ascending and non-empty.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
