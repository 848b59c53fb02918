package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
)

func newReq(t *testing.T) flux.Request {
	t.Helper()
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/x")
	require.NoError(t, err)
	return req
}

func recordingInterceptor(name string, trail *[]string) Interceptor {
	return Func(func(chain Chain) (flux.Response, error) {
		*trail = append(*trail, "req:"+name)
		resp, err := chain.Proceed(chain.Request())
		*trail = append(*trail, "resp:"+name)
		return resp, err
	})
}

func TestExecuteOrderIsDeclaredThenReversed(t *testing.T) {
	var trail []string
	a := recordingInterceptor("a", &trail)
	b := recordingInterceptor("b", &trail)
	c := recordingInterceptor("c", &trail)

	terminal := func(req flux.Request) (flux.Response, error) {
		trail = append(trail, "terminal")
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}

	_, err := Execute(context.Background(), []Interceptor{a, b, c}, newReq(t), terminal)
	require.NoError(t, err)

	want := []string{"req:a", "req:b", "req:c", "terminal", "resp:c", "resp:b", "resp:a"}
	require.Equal(t, want, trail)
}

func TestEmptyChainInvokesTerminalDirectly(t *testing.T) {
	called := false
	terminal := func(req flux.Request) (flux.Response, error) {
		called = true
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}
	_, err := Execute(context.Background(), nil, newReq(t), terminal)
	require.NoError(t, err)
	require.True(t, called, "expected terminal to be invoked")
}

func TestShortCircuitingInterceptorNeverReachesTerminal(t *testing.T) {
	short := Func(func(chain Chain) (flux.Response, error) {
		return flux.NewResponse(chain.Request(), 200, flux.Header{}, []byte("short")), nil
	})
	terminal := func(req flux.Request) (flux.Response, error) {
		t.Fatal("terminal should never be reached")
		return flux.Response{}, nil
	}
	resp, err := Execute(context.Background(), []Interceptor{short}, newReq(t), terminal)
	require.NoError(t, err)
	require.Equal(t, "short", string(resp.Body))
}

func TestSequentialProceedIsAllowed(t *testing.T) {
	attempts := 0
	retrying := Func(func(chain Chain) (flux.Response, error) {
		resp, err := chain.Proceed(chain.Request())
		if err != nil {
			return resp, err
		}
		if resp.Status == 500 {
			return chain.Proceed(chain.Request())
		}
		return resp, nil
	})

	terminal := func(req flux.Request) (flux.Response, error) {
		attempts++
		if attempts == 1 {
			return flux.NewResponse(req, 500, flux.Header{}, nil), nil
		}
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}

	resp, err := Execute(context.Background(), []Interceptor{retrying}, newReq(t), terminal)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Equal(t, 2, attempts)
}

func TestReentrantProceedPanics(t *testing.T) {
	defer func() {
		require.NotNil(t, recover(), "expected a panic on reentrant Proceed")
	}()

	var captured Chain
	reentrant := Func(func(chain Chain) (flux.Response, error) {
		captured = chain
		return chain.Proceed(chain.Request())
	})

	terminal := func(req flux.Request) (flux.Response, error) {
		// Call Proceed again on the same chain frame while the original
		// Proceed call is still on the stack.
		return captured.Proceed(req)
	}

	_, _ = Execute(context.Background(), []Interceptor{reentrant}, newReq(t), terminal)
}

func TestChainableBuildOrdersByPriorityThenCategory(t *testing.T) {
	var trail []string
	mk := func(name string) Interceptor { return recordingInterceptor(name, &trail) }

	c := Chainable{
		Prioritized: []Prioritized{
			{Interceptor: mk("low"), Priority: flux.PriorityLow},
			{Interceptor: mk("critical"), Priority: flux.PriorityCritical},
			{Interceptor: mk("high"), Priority: flux.PriorityHigh},
		},
		General: []Interceptor{mk("general")},
	}

	built := c.Build()
	terminal := func(req flux.Request) (flux.Response, error) {
		return flux.NewResponse(req, 200, flux.Header{}, nil), nil
	}
	_, err := Execute(context.Background(), built, newReq(t), terminal)
	require.NoError(t, err)

	wantOrder := []string{"req:critical", "req:high", "req:low", "req:general"}
	var got []string
	for _, entry := range trail {
		if len(entry) > 4 && entry[:4] == "req:" {
			got = append(got, entry)
		}
	}
	require.Equal(t, wantOrder, got)
}
