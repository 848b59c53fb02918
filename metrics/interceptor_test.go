package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
	"github.com/fluxhttp/flux/interceptor"
)

func newReq(t *testing.T) flux.Request {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/resource")
	require.NoError(t, err)
	return req
}

func TestInterceptorRecordsRequestEventOnSuccess(t *testing.T) {
	rec := NewRecording()
	ic := New(rec, func(req flux.Request) map[string]string {
		return map[string]string{"service": "demo"}
	})

	terminal := func(req flux.Request) (flux.Response, error) {
		return flux.NewResponse(req, 200, flux.Header{}, []byte("ok")), nil
	}

	_, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.NoError(t, err)
	require.Len(t, rec.Requests, 1)
	ev := rec.Requests[0]
	require.Equal(t, 200, ev.Status)
	require.Equal(t, 2, ev.ResponseSize)
	require.Equal(t, "demo", ev.Tags["service"])
}

func TestInterceptorRecordsErrorEventOnFailure(t *testing.T) {
	rec := NewRecording()
	ic := New(rec, nil)

	wantErr := fluxerr.TransportError(errors.New("dial failed"))
	terminal := func(req flux.Request) (flux.Response, error) {
		return flux.Response{}, wantErr
	}

	_, err := interceptor.Execute(context.Background(), []interceptor.Interceptor{ic}, newReq(t), terminal)
	require.ErrorIs(t, err, wantErr)
	require.Len(t, rec.Errors, 1)
	require.Equal(t, fluxerr.KindTransportError, rec.Errors[0].Kind)
}
