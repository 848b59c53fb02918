package cache

import (
	"strings"
	"time"

	"github.com/fluxhttp/flux"
)

// Entry is the stored cache record from spec.md §4.5: a response, its
// creation timestamp, extracted validators, computed expiration, and parsed
// directives, plus (SPEC_FULL §5.5) the request header values named by the
// response's Vary header, so a later lookup can tell whether the new
// request still matches.
type Entry struct {
	Response     flux.Response
	CreatedAt    time.Time
	ETag         string
	LastModified string
	Expiration   time.Time
	Directives   Directives
	Varied       map[string]string
}

// BuildEntry constructs an Entry for resp as observed responding to req at
// now. ttlFallback is used as the expiration window when resp carries no
// max-age directive, per spec.md §4.5 "Expiration absent ⇒ entry falls back
// to a storage-level TTL."
func BuildEntry(req flux.Request, resp flux.Response, now time.Time, ttlFallback time.Duration) Entry {
	directives := ParseDirectives(resp.Header)
	etag, _ := resp.Header.Get("ETag")
	lastModified, _ := resp.Header.Get("Last-Modified")

	window := ttlFallback
	if maxAge, ok := directives.MaxAge(); ok {
		window = time.Duration(maxAge) * time.Second
	}

	varied := map[string]string{}
	if varyRaw, ok := resp.Header.Get("Vary"); ok {
		for _, name := range strings.Split(varyRaw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if v, ok := req.Header().Get(name); ok {
				varied[strings.ToLower(name)] = v
			}
		}
	}

	return Entry{
		Response:     resp,
		CreatedAt:    now,
		ETag:         etag,
		LastModified: lastModified,
		Expiration:   now.Add(window),
		Directives:   directives,
		Varied:       varied,
	}
}

// IsExpired reports whether the entry's computed expiration has passed as of
// now, per spec.md §3.
func (e Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.Expiration)
}

// MustRevalidate is true iff no-cache, OR (expired AND must-revalidate),
// per spec.md §3's exact definition.
func (e Entry) MustRevalidate(now time.Time) bool {
	if e.Directives.NoCache() {
		return true
	}
	return e.IsExpired(now) && e.Directives.MustRevalidateDirective()
}

// ShouldNotStore is true iff no-store, per spec.md §3.
func (e Entry) ShouldNotStore() bool {
	return e.Directives.NoStore()
}

// VaryMatches reports whether req's header values for every name in the
// entry's Vary snapshot still match (SPEC_FULL §5.5, teacher's varyMatches).
// An entry with no Vary snapshot always matches.
func (e Entry) VaryMatches(req flux.Request) bool {
	for name, want := range e.Varied {
		got, ok := req.Header().Get(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// StaleIfErrorWindow reports the stale-if-error window declared by the
// entry's own directives; request directives are not consulted here (see
// UsableOnError). ok is false if the entry declares none.
func (e Entry) StaleIfErrorWindow() (time.Duration, bool) {
	secs, ok := e.Directives.StaleIfError()
	if !ok {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// UsableOnError reports whether this entry may be served in place of a
// transport failure, per RFC 5861's stale-if-error as implemented by the
// teacher's canStaleOnError: the entry's own stale-if-error is used when
// present, otherwise the request's. A bare directive (no value) permits any
// age; a valued one bounds how far past expiration the entry may still be
// served.
func (e Entry) UsableOnError(now time.Time, reqDirectives Directives) bool {
	window, ok := e.StaleIfErrorWindow()
	if !ok {
		if secs, reqOK := reqDirectives.StaleIfError(); reqOK {
			ok = true
			window = time.Duration(secs) * time.Second
		}
	}
	if !ok {
		return false
	}
	if window == 0 {
		return true
	}
	return now.Before(e.Expiration.Add(window))
}

// ConditionalHeaders returns the If-None-Match / If-Modified-Since header
// values a revalidation request should carry for this entry.
func (e Entry) ConditionalHeaders() flux.Header {
	var h flux.Header
	if e.ETag != "" {
		h = h.Set("If-None-Match", e.ETag)
	}
	if e.LastModified != "" {
		h = h.Set("If-Modified-Since", e.LastModified)
	}
	return h
}
