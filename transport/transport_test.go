package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
)

// blockingRoundTripper blocks until the request's context is done, then
// returns the context's own error wrapped the way net/http's Client.Do does.
type blockingRoundTripper struct{}

func (blockingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func newGetRequest(t *testing.T) flux.Request {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/")
	require.NoError(t, err)
	return req
}

func TestExecuteSurfacesTimeoutDistinctlyFromCancelled(t *testing.T) {
	tr := New(&http.Client{Transport: blockingRoundTripper{}})

	req := newGetRequest(t).WithTimeout(10 * time.Millisecond)
	_, err := tr.Execute(context.Background(), req)

	var fe *fluxerr.Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, fluxerr.KindTimeout, fe.Kind)
	require.True(t, errors.Is(err, fluxerr.Timeout))
}

func TestExecuteSurfacesCancellationDistinctlyFromTimeout(t *testing.T) {
	tr := New(&http.Client{Transport: blockingRoundTripper{}})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Execute(ctx, newGetRequest(t))

	var fe *fluxerr.Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, fluxerr.KindCancelled, fe.Kind)
	require.True(t, errors.Is(err, fluxerr.Cancelled))
}

func TestExecuteWiresRequestTimeoutIntoContext(t *testing.T) {
	tr := New(&http.Client{Transport: blockingRoundTripper{}})

	start := time.Now()
	req := newGetRequest(t).WithTimeout(10 * time.Millisecond)
	_, err := tr.Execute(context.Background(), req)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Less(t, elapsed, time.Second, "expected Request.Timeout() to bound the call instead of hanging")
}
