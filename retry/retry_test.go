package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
	"github.com/fluxhttp/flux/interceptor"
)

func newReq(t *testing.T) flux.Request {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/flaky")
	require.NoError(t, err)
	return req
}

func TestRetryEventuallySucceedsAfterTransportFailures(t *testing.T) {
	var events []Event
	ic := New(Config{MaxRetries: 3, Delay: 0}, func(e Event) { events = append(events, e) })

	calls := 0
	terminal := func(req flux.Request) (flux.Response, error) {
		calls++
		if calls <= 2 {
			return flux.Response{}, fluxerr.TransportError(errors.New("connection reset"))
		}
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}

	resp, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Equal(t, 3, calls)
	require.Len(t, events, 2)
	for idx, e := range events {
		require.Equal(t, idx+1, e.Attempt)
		require.Equal(t, "transport_error", e.Reason)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	ic := New(Config{MaxRetries: 2, Delay: 0}, nil)

	calls := 0
	wantErr := fluxerr.TransportError(errors.New("still down"))
	terminal := func(req flux.Request) (flux.Response, error) {
		calls++
		return flux.Response{}, wantErr
	}

	_, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, calls, "want 1 + max_retries")
}

func TestRetryNeverRetriesCancellation(t *testing.T) {
	ic := New(Config{MaxRetries: 5, Delay: 0}, nil)

	calls := 0
	terminal := func(req flux.Request) (flux.Response, error) {
		calls++
		return flux.Response{}, fluxerr.CancelledError("proceed")
	}

	_, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.Error(t, err)
	require.Equal(t, 1, calls, "no retry on cancellation")
}

func TestRetryNeverRetriesHTTPStatusErrors(t *testing.T) {
	ic := New(Config{MaxRetries: 5, Delay: 0}, nil)

	calls := 0
	terminal := func(req flux.Request) (flux.Response, error) {
		calls++
		return flux.NewResponse(req, 500, flux.Header{}, nil), nil
	}

	resp, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.NoError(t, err)
	require.Equal(t, 500, resp.Status)
	require.Equal(t, 1, calls, "5xx is not this interceptor's concern")
}

func TestRetryStopsWhenContextIsCancelledDuringDelay(t *testing.T) {
	ic := New(Config{MaxRetries: 5, Delay: 50 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	terminal := func(req flux.Request) (flux.Response, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return flux.Response{}, fluxerr.TransportError(errors.New("down"))
	}

	_, err := interceptor.Execute(ctx, []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.Error(t, err, "expected context cancellation to abort the retry loop")
	require.Equal(t, 1, calls)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.GreaterOrEqual(t, cfg.MaxRetries, 0)
	require.GreaterOrEqual(t, cfg.Delay, time.Duration(0))
}

func TestNewConfigRejectsNegativeBounds(t *testing.T) {
	_, err := NewConfig(-1, time.Second)
	require.Error(t, err)

	cfg, err := NewConfig(5, 0)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxRetries)
}
