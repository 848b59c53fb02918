package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
)

func TestHybridPromotesDiskHitsIntoMemory(t *testing.T) {
	memory := newMemStorage()
	disk := newMemStorage()
	h := NewHybrid(memory, disk)

	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/h")
	require.NoError(t, err)
	resp := flux.NewResponse(req, 200, flux.Header{}, []byte("on-disk"))

	e := Entry{Response: resp}
	require.NoError(t, disk.Set("k", e))
	_, ok := memory.Get("k")
	require.False(t, ok, "memory should start empty")

	got, ok := h.Get("k")
	require.True(t, ok)
	require.Equal(t, "on-disk", string(got.Response.Body))

	_, ok = memory.Get("k")
	require.True(t, ok, "expected the disk hit to be promoted into memory")
}

func TestHybridSetWritesThroughBothTiers(t *testing.T) {
	memory := newMemStorage()
	disk := newMemStorage()
	h := NewHybrid(memory, disk)

	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/h2")
	require.NoError(t, err)
	resp := flux.NewResponse(req, 200, flux.Header{}, []byte("both"))
	require.NoError(t, h.Set("k2", Entry{Response: resp}))

	_, ok := memory.Get("k2")
	require.True(t, ok, "expected memory tier to have the entry")
	_, ok = disk.Get("k2")
	require.True(t, ok, "expected disk tier to have the entry")
}
