package cache

import (
	"strconv"
	"strings"

	"github.com/fluxhttp/flux"
)

// Directives is the parsed Cache-Control directive set from spec.md §4.5:
// case-insensitive, comma-separated, optional whitespace, `key=value` or
// bare `key`. Unrecognized directives are retained (ignored by callers that
// don't look them up) rather than dropped, grounded on the teacher's
// parseCacheControl.
type Directives map[string]string

// ParseDirectives parses the Cache-Control header of h, if present.
func ParseDirectives(h flux.Header) Directives {
	d := Directives{}
	raw, ok := h.Get("Cache-Control")
	if !ok {
		return d
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			key := strings.ToLower(strings.TrimSpace(part[:eq]))
			val := strings.Trim(strings.TrimSpace(part[eq+1:]), `"`)
			d[key] = val
		} else {
			d[strings.ToLower(part)] = ""
		}
	}
	return d
}

// Has reports whether directive name is present, bare or with a value.
func (d Directives) Has(name string) bool {
	_, ok := d[strings.ToLower(name)]
	return ok
}

// NoStore reports the no-store directive.
func (d Directives) NoStore() bool { return d.Has("no-store") }

// NoCache reports the no-cache directive.
func (d Directives) NoCache() bool { return d.Has("no-cache") }

// MustRevalidateDirective reports the bare must-revalidate directive.
func (d Directives) MustRevalidateDirective() bool { return d.Has("must-revalidate") }

// MaxAge returns the max-age directive in seconds, if present and valid.
func (d Directives) MaxAge() (int, bool) {
	v, ok := d["max-age"]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StaleIfError returns the stale-if-error window in seconds. A bare
// directive (no value) means "any age", reported as (0, true) with the
// caller expected to treat 0 as unbounded — see Entry.UsableOnError.
func (d Directives) StaleIfError() (int, bool) {
	v, ok := d["stale-if-error"]
	if !ok {
		return 0, false
	}
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OnlyIfCached reports the request-side only-if-cached directive.
func (d Directives) OnlyIfCached() bool { return d.Has("only-if-cached") }
