// Package cachestore holds the plain-testing conformance suite every
// cache.Storage implementation must pass, mirroring the teacher's
// test.Cache(t, cache) helper (test/test.go) but built around cache.Entry
// values instead of raw byte streams.
package cachestore

import (
	"testing"
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/cache"
)

// RunConformance exercises a cache.Storage implementation's Get/Set/Delete/
// Clear contract.
func RunConformance(t *testing.T, storage cache.Storage) {
	t.Helper()

	key := "https://example.com/conformance"

	if _, ok := storage.Get(key); ok {
		t.Fatal("retrieved key before adding it")
	}

	entry := sampleEntry(t, "https://example.com/conformance", "hello")

	if err := storage.Set(key, entry); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := storage.Get(key)
	if !ok {
		t.Fatal("could not retrieve an entry we just added")
	}
	if string(got.Response.Body) != "hello" {
		t.Fatalf("retrieved a different body than what we put in: %q", got.Response.Body)
	}
	if got.ETag != entry.ETag {
		t.Fatalf("ETag not preserved: got %q want %q", got.ETag, entry.ETag)
	}

	storage.Delete(key)
	if _, ok := storage.Get(key); ok {
		t.Fatal("deleted key still present")
	}

	noStore := sampleEntry(t, "https://example.com/no-store", "secret")
	noStore.Directives = cache.Directives{"no-store": ""}
	if err := storage.Set("https://example.com/no-store", noStore); err != nil {
		t.Fatalf("Set (no-store): %v", err)
	}
	if _, ok := storage.Get("https://example.com/no-store"); ok {
		t.Fatal("invariant I3 violated: a no-store entry was persisted")
	}

	if err := storage.Set(key, entry); err != nil {
		t.Fatalf("Set before Clear: %v", err)
	}
	storage.Clear()
	if _, ok := storage.Get(key); ok {
		t.Fatal("entry still present after Clear")
	}
}

func sampleEntry(t *testing.T, rawURL, body string) cache.Entry {
	t.Helper()

	req, err := flux.NewRequest(flux.MethodGet, rawURL)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	header := flux.NewHeader("ETag", `"v1"`)
	resp := flux.NewResponse(req, 200, header, []byte(body))

	return cache.BuildEntry(req, resp, time.Now(), cache.DefaultTTL)
}
