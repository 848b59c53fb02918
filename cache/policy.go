package cache

import (
	"errors"
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
	"github.com/fluxhttp/flux/fluxlog"
	"github.com/fluxhttp/flux/interceptor"
)

// Interceptor drives a Store against the four cache policies from spec.md
// §4.5: use-cache, ignore-cache, revalidate, respect-headers.
type Interceptor struct {
	Store *Store

	// OnEvent, if set, is called for each cache outcome of a cacheable
	// request (a miss that is then stored reports Miss and then Stored), for
	// the metrics pipeline (spec.md §4.8's CacheEvent) to
	// observe without this package depending on the metrics package.
	OnEvent func(Result, flux.Request)

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// New constructs an Interceptor over store.
func New(store *Store) *Interceptor {
	return &Interceptor{Store: store, Logger: fluxlog.Default}
}

func (c *Interceptor) logger() fluxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return fluxlog.Default
}

func (c *Interceptor) emit(result Result, req flux.Request) {
	c.logger().Debug("cache: "+result.String(), map[string]any{"url": req.URL().String()})
	if c.OnEvent != nil {
		c.OnEvent(result, req)
	}
}

// Intercept implements interceptor.Interceptor.
func (c *Interceptor) Intercept(chain interceptor.Chain) (flux.Response, error) {
	req := chain.Request()
	if !req.IsCacheable() {
		return chain.Proceed(req)
	}

	switch req.CachePolicy() {
	case flux.CacheIgnoreCache:
		return c.ignoreCache(chain, req)
	case flux.CacheRevalidate:
		return c.revalidate(chain, req)
	case flux.CacheRespectHeaders:
		return c.respectHeaders(chain, req)
	default:
		return c.useCache(chain, req)
	}
}

// useCache: return a fresh cached entry with no network call; otherwise
// fetch and cache any 2xx response.
func (c *Interceptor) useCache(chain interceptor.Chain, req flux.Request) (flux.Response, error) {
	if resp, ok := c.Store.CachedResponse(req); ok {
		c.emit(ResultHit, req)
		return resp, nil
	}
	c.emit(ResultMiss, req)
	return c.fetchAndStore(chain, req)
}

// ignoreCache: always fetch, but still populate the cache for later policies.
func (c *Interceptor) ignoreCache(chain interceptor.Chain, req flux.Request) (flux.Response, error) {
	return c.fetchAndStore(chain, req)
}

// revalidate: if an entry exists, issue a conditional request carrying its
// validators; a 304 means the cached body is still good.
func (c *Interceptor) revalidate(chain interceptor.Chain, req flux.Request) (flux.Response, error) {
	entry, ok := c.Store.CachedEntry(req)
	if !ok {
		c.emit(ResultMiss, req)
		return c.fetchAndStore(chain, req)
	}

	condReq := req.WithHeaders(entry.ConditionalHeaders())
	resp, err := chain.Proceed(condReq)
	if err != nil {
		return resp, err
	}
	if resp.Status == 304 {
		c.emit(ResultRevalidated, req)
		return entry.Response, nil
	}
	if resp.IsSuccessful() {
		if storeErr := c.Store.Store(req, resp); storeErr == nil {
			c.emit(ResultStored, req)
		}
	}
	return resp, nil
}

// respectHeaders implements spec.md §4.5's full HTTP cache semantics: a
// shouldNotStore entry is removed and treated as a miss; a mustRevalidate
// entry (no-cache, or expired-and-must-revalidate) is conditionally
// checked; a fresh entry serves with no network call; an expired entry is
// revalidated. Two supplements layer on top: only-if-cached with no usable
// entry synthesizes a 504 (teacher's newGatewayTimeoutResponse), and a
// transport failure during revalidation falls back to a stale entry
// carrying stale-if-error instead of surfacing the error.
func (c *Interceptor) respectHeaders(chain interceptor.Chain, req flux.Request) (flux.Response, error) {
	reqDirectives := ParseDirectives(req.Header())
	now := c.Store.now()
	entry, hasEntry := c.Store.CachedEntry(req)

	if reqDirectives.OnlyIfCached() {
		if hasEntry && !entry.IsExpired(now) && !entry.ShouldNotStore() {
			c.emit(ResultHit, req)
			return entry.Response, nil
		}
		c.emit(ResultMiss, req)
		return gatewayTimeoutResponse(req), nil
	}

	if hasEntry && entry.ShouldNotStore() {
		c.Store.Remove(req)
		hasEntry = false
	}

	if hasEntry && entry.MustRevalidate(now) {
		return c.revalidateWithFallback(chain, req, entry, now, reqDirectives)
	}

	if hasEntry && !entry.IsExpired(now) {
		c.emit(ResultHit, req)
		return entry.Response, nil
	}

	if hasEntry {
		return c.revalidateWithFallback(chain, req, entry, now, reqDirectives)
	}

	c.emit(ResultMiss, req)
	return c.fetchAndStore(chain, req)
}

// revalidateWithFallback issues the conditional request for entry and, on a
// transport failure, falls back to the stale entry when stale-if-error
// permits it.
func (c *Interceptor) revalidateWithFallback(chain interceptor.Chain, req flux.Request, entry Entry, now time.Time, reqDirectives Directives) (flux.Response, error) {
	condReq := req.WithHeaders(entry.ConditionalHeaders())
	resp, err := chain.Proceed(condReq)
	if err != nil {
		if isTransportFailure(err) && entry.UsableOnError(now, reqDirectives) {
			c.emit(ResultHit, req)
			return entry.Response, nil
		}
		return resp, err
	}
	if resp.Status == 304 {
		c.emit(ResultRevalidated, req)
		return entry.Response, nil
	}
	if resp.IsSuccessful() {
		if storeErr := c.Store.Store(req, resp); storeErr == nil {
			c.emit(ResultStored, req)
		}
		return resp, nil
	}
	c.emit(ResultMiss, req)
	return resp, nil
}

func (c *Interceptor) fetchAndStore(chain interceptor.Chain, req flux.Request) (flux.Response, error) {
	resp, err := chain.Proceed(req)
	if err != nil {
		return resp, err
	}
	if resp.IsSuccessful() {
		if storeErr := c.Store.Store(req, resp); storeErr == nil {
			c.emit(ResultStored, req)
		}
	}
	return resp, nil
}

func isTransportFailure(err error) bool {
	var fe *fluxerr.Error
	if errors.As(err, &fe) {
		return fe.Kind == fluxerr.KindTransportError || fe.Kind == fluxerr.KindTimeout
	}
	return false
}

// gatewayTimeoutResponse synthesizes the 504 returned for only-if-cached
// with no usable entry, grounded on the teacher's newGatewayTimeoutResponse.
func gatewayTimeoutResponse(req flux.Request) flux.Response {
	h := flux.NewHeader("Content-Type", "text/plain; charset=utf-8")
	body := []byte("flux: only-if-cached set and no usable cached response")
	return flux.NewResponse(req, 504, h, body)
}
