package auth

import (
	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxlog"
	"github.com/fluxhttp/flux/interceptor"
)

// Interceptor is spec.md §4.4's auth interceptor: attach the current token,
// and on a single 401 either take the pre-coordinator fast path (spec.md
// §4.3 — another request already refreshed) or drive the coordinator, with
// exactly one retry either way. SPEC_FULL §5.4 collapses the source's
// legacy dual-constructor into this one shape: a TokenStore to read/peek
// the current token, a Coordinator, and a RefreshFunc.
type Interceptor struct {
	Store       TokenStore
	Coordinator *Coordinator
	Refresh     RefreshFunc

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// New constructs the auth interceptor.
func New(store TokenStore, coordinator *Coordinator, refresh RefreshFunc) *Interceptor {
	return &Interceptor{Store: store, Coordinator: coordinator, Refresh: refresh, Logger: fluxlog.Default}
}

func (i *Interceptor) logger() fluxlog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return fluxlog.Default
}

func withBearer(req flux.Request, token string) flux.Request {
	return req.WithHeader("Authorization", "Bearer "+token)
}

// Intercept implements interceptor.Interceptor.
func (i *Interceptor) Intercept(chain interceptor.Chain) (flux.Response, error) {
	req := chain.Request()

	sentToken, hasToken := i.Store.Token()
	outReq := req
	if hasToken {
		outReq = withBearer(req, sentToken)
	}

	resp, err := chain.Proceed(outReq)
	if err != nil {
		return resp, err
	}
	if resp.Status != 401 {
		return resp, nil
	}
	i.logger().Debug("auth: received 401", map[string]any{"url": req.URL().String()})

	// Pre-coordinator fast path (spec.md §4.3): if the store token already
	// moved past what we sent, another request already refreshed — retry
	// immediately without entering the coordinator.
	current, hasCurrent := i.Store.Token()
	if hasCurrent && current != sentToken {
		i.logger().Debug("auth: fast-path retry with already-refreshed token", nil)
		return chain.Proceed(withBearer(req, current))
	}

	if i.Coordinator == nil || i.Refresh == nil {
		return resp, nil
	}

	newToken, refreshErr := i.Coordinator.RefreshIfNeeded(chain.Context(), i.Refresh)
	if refreshErr != nil || newToken == "" {
		// No refresh was possible; surface the original 401 verbatim.
		i.logger().Warn("auth: no refresh available, surfacing 401", nil)
		return resp, nil
	}

	// Exactly one retry on 401 — the retried response, even if itself a
	// 401, is returned as-is.
	return chain.Proceed(withBearer(req, newToken))
}
