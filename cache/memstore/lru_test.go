package memstore

import (
	"testing"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/cache"
	"github.com/fluxhttp/flux/cache/cachestore"
)

func TestStoreConformance(t *testing.T) {
	cachestore.RunConformance(t, New(DefaultCapacity))
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := New(2)

	put := func(key string) {
		req, err := flux.NewRequest(flux.MethodGet, "https://example.com/"+key)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		resp := flux.NewResponse(req, 200, flux.Header{}, []byte(key))
		if err := s.Set(key, cache.Entry{Response: resp}); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	put("a")
	put("b")

	// Touch "a" so "b" becomes the least-recently-used entry.
	if _, ok := s.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}

	put("c") // exceeds capacity 2, should evict "b"

	if _, ok := s.Get("b"); ok {
		t.Fatal("expected b to have been evicted")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestStoreRefusesNoStore(t *testing.T) {
	s := New(DefaultCapacity)
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/x")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp := flux.NewResponse(req, 200, flux.Header{}, []byte("x"))
	entry := cache.Entry{Response: resp, Directives: cache.Directives{"no-store": ""}}

	if err := s.Set("x", entry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := s.Get("x"); ok {
		t.Fatal("no-store entry should not be retrievable")
	}
}
