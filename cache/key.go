package cache

import "github.com/fluxhttp/flux"

// Key computes the logical cache key from spec.md §4.5: (method, url) with
// method restricted to GET in practice — only GET requests are ever stored
// (spec.md §4.5's storage-level constraint) so the key is the URL alone for
// the cacheable case, with the method folded in defensively for anything
// else a caller might pass through Key directly.
//
// Per spec.md §9 Open Question (a), the key intentionally ignores headers;
// Entry.VaryMatches (SPEC_FULL §5.5) is the correctness refinement layered
// on top, not a change to the key shape.
func Key(req flux.Request) string {
	if req.Method() == flux.MethodGet {
		return req.URL().String()
	}
	return string(req.Method()) + " " + req.URL().String()
}
