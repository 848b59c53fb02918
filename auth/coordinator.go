package auth

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/fluxhttp/flux/fluxlog"
)

// RefreshFunc performs the actual token-acquiring network call. An empty
// token with a nil error means "no refresh was possible" (e.g. no refresh
// credential configured); callers treat that the same as an error for
// retry-once purposes.
type RefreshFunc func(ctx context.Context) (token string, err error)

// Coordinator is the correctness-critical primitive from spec.md §4.3:
// given N concurrent callers, RefreshIfNeeded guarantees refresh executes
// exactly once until completion, after which a new call starts a new
// refresh. Grounded on singleflight.Group, which already provides
// coalesce-while-in-flight-then-forget semantics — the "scoped release on
// every exit path" spec.md asks for is singleflight's own guarantee, not
// something this type has to reimplement.
type Coordinator struct {
	store TokenStore
	group singleflight.Group

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// NewCoordinator constructs a Coordinator writing refreshed tokens to store.
func NewCoordinator(store TokenStore) *Coordinator {
	return &Coordinator{store: store, Logger: fluxlog.Default}
}

func (c *Coordinator) logger() fluxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return fluxlog.Default
}

// RefreshIfNeeded runs refresh, coalescing concurrent callers onto a single
// in-flight attempt. On success the new token is written to the store
// before any waiter observes completion. A refresh that returns ("", nil)
// is documented by RefreshFunc as "no refresh was possible" and must not
// overwrite a previously stored token with an empty one.
func (c *Coordinator) RefreshIfNeeded(ctx context.Context, refresh RefreshFunc) (string, error) {
	c.logger().Debug("auth: refresh starting", nil)
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		token, err := refresh(ctx)
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", nil
		}
		c.store.SetToken(token)
		return token, nil
	})
	if err != nil {
		c.logger().Warn("auth: refresh failed", map[string]any{"error": err.Error()})
		return "", err
	}
	if v.(string) == "" {
		c.logger().Warn("auth: refresh reported no new token", nil)
		return "", nil
	}
	c.logger().Debug("auth: refresh succeeded", nil)
	return v.(string), nil
}
