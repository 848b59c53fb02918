package dedupe

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
)

func newReq(t *testing.T, rawURL string) flux.Request {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, rawURL)
	require.NoError(t, err)
	return req
}

func TestDeduplicateCoalescesConcurrentIdenticalRequests(t *testing.T) {
	d := New()

	var calls int32
	exec := func(req flux.Request) (flux.Response, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return flux.NewResponse(req, 200, flux.Header{}, []byte("shared-body")), nil
	}

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	bodies := make([]string, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resp, err := d.Deduplicate(newReq(t, "https://example.com/same"), exec)
			if assert.NoError(t, err) {
				bodies[i] = string(resp.Body)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for i, b := range bodies {
		assert.Equalf(t, "shared-body", b, "bodies[%d]", i)
	}
}

func TestDeduplicateStartsFreshExecAfterCompletion(t *testing.T) {
	d := New()
	var calls int32
	exec := func(req flux.Request) (flux.Response, error) {
		atomic.AddInt32(&calls, 1)
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}

	req := newReq(t, "https://example.com/x")
	_, err := d.Deduplicate(req, exec)
	require.NoError(t, err)
	_, err = d.Deduplicate(req, exec)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls), "expected two separate executions once the first completed")
}

func TestFingerprintDiffersByMethodAndHeaders(t *testing.T) {
	get := newReq(t, "https://example.com/res")
	post, err := flux.NewRequest(flux.MethodPost, "https://example.com/res")
	require.NoError(t, err)

	require.NotEqual(t, Fingerprint(get), Fingerprint(post))

	withHeader := get.WithHeader("Accept", "application/json")
	require.NotEqual(t, Fingerprint(get), Fingerprint(withHeader))
}

func TestFingerprintDiffersByBody(t *testing.T) {
	base, err := flux.NewRequest(flux.MethodPost, "https://example.com/res")
	require.NoError(t, err)
	a := base.WithBody(flux.NewDataBody([]byte("one"), ""))
	b := base.WithBody(flux.NewDataBody([]byte("two"), ""))

	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
