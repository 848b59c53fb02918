package diskstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/cache"
	"github.com/fluxhttp/flux/cache/cachestore"
)

func sampleEntryForTest(t *testing.T) cache.Entry {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/reopen")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp := flux.NewResponse(req, 200, flux.NewHeader("ETag", `"v1"`), []byte("persisted"))
	return cache.BuildEntry(req, resp, time.Now(), cache.DefaultTTL)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "blobs"), filepath.Join(dir, "index"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	cachestore.RunConformance(t, newTestStore(t))
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	blobs := filepath.Join(dir, "blobs")
	index := filepath.Join(dir, "index")

	s1, err := New(blobs, index)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entry := sampleEntryForTest(t)
	if err := s1.Set("k", entry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(blobs, index)
	if err != nil {
		t.Fatalf("reopen New: %v", err)
	}
	defer s2.Close()

	got, ok := s2.Get("k")
	if !ok {
		t.Fatal("entry did not survive reopen")
	}
	if string(got.Response.Body) != string(entry.Response.Body) {
		t.Fatalf("body mismatch after reopen: got %q want %q", got.Response.Body, entry.Response.Body)
	}
}
