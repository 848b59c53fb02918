// Package client wires flux's independently-testable pieces — the
// interceptor chain, the cache engine, the auth interceptor, the retry
// interceptor, the request deduplicator, and the metrics pipeline — into
// one orchestration type, per SPEC_FULL §1's note that a minimal
// flux.Client type is in scope even though the fluent builder facade
// around it is explicitly out of scope.
package client

import (
	"context"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/auth"
	"github.com/fluxhttp/flux/cache"
	"github.com/fluxhttp/flux/call"
	"github.com/fluxhttp/flux/dedupe"
	"github.com/fluxhttp/flux/interceptor"
	"github.com/fluxhttp/flux/metrics"
	"github.com/fluxhttp/flux/retry"
	"github.com/fluxhttp/flux/transport"
)

// Config assembles the optional subsystems a Client wires in. Every field
// is optional; a zero-value Config produces a client that just runs
// Transport through whatever Extra interceptors are given.
type Config struct {
	Transport transport.Transport

	Cache *cache.Store
	Auth  *auth.Interceptor
	Retry *retry.Config

	// Deduplicate enables request coalescing via dedupe.Deduplicator when
	// true, per spec.md §4.7.
	Deduplicate bool

	Collector metrics.Collector
	Tags      func(req flux.Request) map[string]string

	// Extra interceptors layered in after the built-in ones, e.g. logging
	// or custom auth. They form the chain's general segment, so they run
	// after every built-in interceptor, in the order given.
	Extra []interceptor.Interceptor
}

// Client executes requests through the full flux pipeline: interceptor
// chain, terminal transport, one Call per Do.
type Client struct {
	cfg          Config
	interceptors []interceptor.Interceptor
	dedup        *dedupe.Deduplicator
}

// New builds a Client from cfg. A nil cfg.Transport defaults to
// transport.New(nil) (a plain net/http-backed transport).
func New(cfg Config) *Client {
	if cfg.Transport == nil {
		cfg.Transport = transport.New(nil)
	}

	c := &Client{cfg: cfg}

	var prioritized []interceptor.Prioritized
	if cfg.Retry != nil {
		var onRetry func(retry.Event)
		if cfg.Collector != nil {
			onRetry = func(e retry.Event) {
				cfg.Collector.RecordRetry(metrics.RetryEvent{Attempt: e.Attempt, Reason: e.Reason})
			}
		}
		prioritized = append(prioritized, interceptor.Prioritized{
			Interceptor: retry.New(*cfg.Retry, onRetry),
			Priority:    flux.PriorityHigh,
		})
	}
	if cfg.Auth != nil {
		prioritized = append(prioritized, interceptor.Prioritized{
			Interceptor: cfg.Auth,
			Priority:    flux.PriorityHigh,
		})
	}
	if cfg.Cache != nil {
		var onEvent func(cache.Result, flux.Request)
		if cfg.Collector != nil {
			onEvent = func(result cache.Result, req flux.Request) {
				cfg.Collector.RecordCache(metrics.CacheEvent{
					Method: req.Method(),
					URL:    req.URL().String(),
					Result: result,
				})
			}
		}
		prioritized = append(prioritized, interceptor.Prioritized{
			Interceptor: &cache.Interceptor{Store: cfg.Cache, OnEvent: onEvent},
			Priority:    flux.PriorityNormal,
		})
	}
	if cfg.Collector != nil {
		prioritized = append(prioritized, interceptor.Prioritized{
			Interceptor: metrics.New(cfg.Collector, cfg.Tags),
			Priority:    flux.PriorityCritical,
		})
	}

	chainable := interceptor.Chainable{
		Prioritized: prioritized,
		General:     cfg.Extra,
	}
	c.interceptors = chainable.Build()

	if cfg.Deduplicate {
		c.dedup = dedupe.New()
	}
	return c
}

// Do executes req through one Call: the interceptor chain wraps the
// terminal transport, per spec.md §4.2's Call lifecycle. If deduplication
// is enabled, concurrent identical requests (by dedupe.Fingerprint) share
// one underlying execution.
func (c *Client) Do(ctx context.Context, req flux.Request) (flux.Response, error) {
	call := call.New(ctx)
	run := func(ctx context.Context, req flux.Request) (flux.Response, error) {
		terminal := func(req flux.Request) (flux.Response, error) {
			return c.cfg.Transport.Execute(ctx, req)
		}
		return interceptor.Execute(ctx, c.interceptors, req, terminal)
	}

	if c.dedup == nil {
		return call.Execute(req, run)
	}
	return call.Execute(req, func(ctx context.Context, req flux.Request) (flux.Response, error) {
		return c.dedup.Deduplicate(req, func(req flux.Request) (flux.Response, error) {
			return run(ctx, req)
		})
	})
}
