package cache

import (
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxlog"
)

// DefaultTTL is the storage-level fallback expiration window used when a
// response carries no max-age directive (spec.md §4.5).
const DefaultTTL = 5 * time.Minute

// Store is the cache engine proper: it layers spec.md §4.5's freshness,
// Vary-matching, and invariant-I3 ("shouldNotStore MUST NOT be persisted")
// rules on top of a raw Storage backend. Storage implementations
// (cache/memstore, cache/diskstore) stay dumb key->Entry maps; all policy
// logic lives here and in the cache interceptor (policy.go) that drives it.
type Store struct {
	Storage Storage
	TTL     time.Duration
	Now     func() time.Time

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// NewStore wraps storage with the default TTL fallback and time source.
func NewStore(storage Storage) *Store {
	return &Store{Storage: storage, TTL: DefaultTTL, Now: time.Now, Logger: fluxlog.Default}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) logger() fluxlog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return fluxlog.Default
}

// CachedResponse returns the cached response for req if a fresh,
// Vary-matching entry exists (spec.md §4.5's "cachedResponse": "Expired
// entries MUST be invisible to cachedResponse").
func (s *Store) CachedResponse(req flux.Request) (flux.Response, bool) {
	entry, ok := s.CachedEntry(req)
	if !ok {
		return flux.Response{}, false
	}
	if entry.IsExpired(s.now()) {
		return flux.Response{}, false
	}
	return entry.Response, true
}

// CachedEntry returns the entry for req's key regardless of freshness —
// "MAY be visible to cachedEntry (for revalidation)" per spec.md §4.5 — but
// still subject to Vary matching, since a Vary mismatch means the entry
// simply doesn't describe this request's response at all.
func (s *Store) CachedEntry(req flux.Request) (Entry, bool) {
	entry, ok := s.Storage.Get(Key(req))
	if !ok {
		return Entry{}, false
	}
	if !entry.VaryMatches(req) {
		return Entry{}, false
	}
	return entry, true
}

// Store persists resp for req, unless resp is not a 2xx, req is not GET, or
// the built entry's ShouldNotStore is true (invariant I3).
func (s *Store) Store(req flux.Request, resp flux.Response) error {
	if !req.IsCacheable() || !resp.IsSuccessful() {
		return nil
	}
	entry := BuildEntry(req, resp, s.now(), s.TTL)
	if entry.ShouldNotStore() {
		s.logger().Debug("cache: entry not stored", map[string]any{"key": Key(req)})
		return nil
	}
	if err := s.Storage.Set(Key(req), entry); err != nil {
		s.logger().Warn("cache: storage write failed", map[string]any{"key": Key(req), "error": err.Error()})
		return err
	}
	return nil
}

// Remove deletes any entry for req.
func (s *Store) Remove(req flux.Request) {
	s.Storage.Delete(Key(req))
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.Storage.Clear()
}
