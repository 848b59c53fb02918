// Package interceptor implements the re-entrant middleware chain from
// spec.md §4.1: composable request/response middleware with short-circuit,
// priority ordering, and request-only/response-only specializations.
package interceptor

import (
	"context"
	"fmt"
	"sort"

	"github.com/fluxhttp/flux"
)

// Handler is the terminal step a chain runs once every interceptor has run —
// normally a transport. It is also the shape Chain.Proceed has.
type Handler func(req flux.Request) (flux.Response, error)

// Interceptor inspects and optionally transforms a request or response, per
// spec.md §4.1: it may synthesize a response and return without calling
// Proceed (short-circuiting), mutate the request and call chain.Proceed, or
// transform the response Proceed returns — or any combination.
type Interceptor interface {
	Intercept(chain Chain) (flux.Response, error)
}

// Func adapts a plain function to Interceptor.
type Func func(chain Chain) (flux.Response, error)

func (f Func) Intercept(chain Chain) (flux.Response, error) { return f(chain) }

// RequestInterceptor only inspects/mutates the request; it cannot see the
// response (spec.md §4.1 "request-only").
type RequestInterceptor func(req flux.Request) (flux.Request, error)

// ResponseInterceptor only inspects/transforms the response that came back
// from downstream (spec.md §4.1 "response-only").
type ResponseInterceptor func(resp flux.Response) (flux.Response, error)

// Chain is the iterator object passed to each interceptor: it exposes the
// request as it exists at this interceptor's entry point and a Proceed
// continuation that advances to the next interceptor (or the terminal
// handler once exhausted).
type Chain interface {
	// Request returns the request as it existed when this interceptor was
	// invoked — not the original request of the whole call, and not
	// whatever a later Proceed call passes (spec.md §4.1 re-entrancy rule).
	Request() flux.Request
	// Context returns the call's context, the same one the terminal
	// transport and Call.Execute share, so interceptors that need to
	// honor cancellation or deadlines (retry backoff sleep, the auth
	// coordinator await) don't need it threaded through separately.
	Context() context.Context
	// Proceed advances the chain with req, which may differ from
	// Request(); downstream interceptors see req, not the original. An
	// interceptor MAY call Proceed more than once sequentially — the auth
	// interceptor's exactly-one-retry-on-401 (spec.md §4.4) and the retry
	// interceptor's attempt loop (spec.md §4.6) both depend on this, each
	// call producing an independent downstream invocation. What's a
	// programmer error, and panics (spec.md §4.1: "behavior undefined, but
	// implementations should detect and fail loudly"), is calling Proceed
	// again *reentrantly* — before a prior call on the same Chain has
	// returned.
	Proceed(req flux.Request) (flux.Response, error)
}

type link struct {
	interceptors []Interceptor
	index        int
	req          flux.Request
	ctx          context.Context
	terminal     Handler
	inFlight     bool
}

func (l *link) Request() flux.Request    { return l.req }
func (l *link) Context() context.Context { return l.ctx }

func (l *link) Proceed(req flux.Request) (flux.Response, error) {
	if l.inFlight {
		panic(fmt.Sprintf("flux/interceptor: reentrant Proceed call by interceptor at index %d", l.index))
	}
	l.inFlight = true
	defer func() { l.inFlight = false }()

	next := l.index + 1
	if next >= len(l.interceptors) {
		return l.terminal(req)
	}
	nl := &link{interceptors: l.interceptors, index: next, req: req, ctx: l.ctx, terminal: l.terminal}
	return l.interceptors[next].Intercept(nl)
}

// Execute runs req through interceptors in order under ctx, finally
// invoking terminal. An empty interceptor slice invokes terminal directly.
func Execute(ctx context.Context, interceptors []Interceptor, req flux.Request, terminal Handler) (flux.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(interceptors) == 0 {
		return terminal(req)
	}
	l := &link{interceptors: interceptors, index: 0, req: req, ctx: ctx, terminal: terminal}
	return interceptors[0].Intercept(l)
}

// AdaptRequestOnly lifts a RequestInterceptor to the full Interceptor
// interface: it mutates the request then calls Proceed, per spec.md §4.1.
func AdaptRequestOnly(ri RequestInterceptor) Interceptor {
	return Func(func(chain Chain) (flux.Response, error) {
		req, err := ri(chain.Request())
		if err != nil {
			return flux.Response{}, err
		}
		return chain.Proceed(req)
	})
}

// AdaptResponseOnly lifts a ResponseInterceptor to the full Interceptor
// interface: it calls Proceed unchanged then transforms the response.
func AdaptResponseOnly(ro ResponseInterceptor) Interceptor {
	return Func(func(chain Chain) (flux.Response, error) {
		resp, err := chain.Proceed(chain.Request())
		if err != nil {
			return resp, err
		}
		return ro(resp)
	})
}

// Prioritized pairs an Interceptor with the Priority it should run at in the
// prioritized-interceptors segment of the effective order.
type Prioritized struct {
	Interceptor Interceptor
	Priority    flux.Priority
}

// Chainable collects the four interceptor categories from spec.md §4.1 and
// computes the effective execution order:
//
//	sort_by_priority(prioritized) ++ adapt(requestOnly) ++ general ++ adapt(responseOnly)
//
// The priority sort is stable and descending; ties preserve insertion order.
type Chainable struct {
	Prioritized  []Prioritized
	RequestOnly  []RequestInterceptor
	General      []Interceptor
	ResponseOnly []ResponseInterceptor
}

// Build computes the effective, ordered interceptor slice per spec.md §4.1.
func (c Chainable) Build() []Interceptor {
	prioritized := make([]Prioritized, len(c.Prioritized))
	copy(prioritized, c.Prioritized)
	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].Priority > prioritized[j].Priority
	})

	out := make([]Interceptor, 0, len(prioritized)+len(c.RequestOnly)+len(c.General)+len(c.ResponseOnly))
	for _, p := range prioritized {
		out = append(out, p.Interceptor)
	}
	for _, ri := range c.RequestOnly {
		out = append(out, AdaptRequestOnly(ri))
	}
	out = append(out, c.General...)
	for _, ro := range c.ResponseOnly {
		out = append(out, AdaptResponseOnly(ro))
	}
	return out
}
