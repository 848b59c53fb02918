// Package retry implements spec.md §4.6's classified retry interceptor:
// only transport-level I/O failures are retried, with a fixed delay between
// attempts, bounded by a maximum retry count.
package retry

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
	"github.com/fluxhttp/flux/fluxlog"
	"github.com/fluxhttp/flux/interceptor"
	"github.com/fluxhttp/flux/internal/fluxvalidate"
)

// Config bounds the retry interceptor: at most MaxRetries additional
// attempts beyond the first, each separated by Delay. Construct via
// NewConfig or DefaultConfig to get validation per SPEC_FULL §2.3.
type Config struct {
	MaxRetries int           `validate:"gte=0"`
	Delay      time.Duration `validate:"gte=0"`
}

// DefaultConfig is the package's conservative default: retry up to 3 times
// with a 500ms fixed delay between attempts.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, Delay: 500 * time.Millisecond}
}

// NewConfig validates maxRetries and delay and returns a Config, failing
// fast on a negative bound rather than letting it surface as a confusing
// runtime loop.
func NewConfig(maxRetries int, delay time.Duration) (Config, error) {
	c := Config{MaxRetries: maxRetries, Delay: delay}
	if err := fluxvalidate.Struct(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Event is emitted once per retried attempt, before the delay that precedes
// the next one, per spec.md §4.6 ("retry emits a metrics event with attempt
// index and classification reason").
type Event struct {
	Attempt int
	Reason  string
	Err     error
}

// Interceptor is spec.md §4.6's retry interceptor.
type Interceptor struct {
	Config  Config
	OnRetry func(Event)

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// New constructs a retry interceptor.
func New(cfg Config, onRetry func(Event)) *Interceptor {
	return &Interceptor{Config: cfg, OnRetry: onRetry, Logger: fluxlog.Default}
}

func (i *Interceptor) logger() fluxlog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return fluxlog.Default
}

// Intercept implements interceptor.Interceptor. Delay scheduling comes from
// backoff.NewConstantBackOff rather than a hand-rolled time.Sleep, wrapped
// in a loop that honors the chain's context for cancellation.
func (i *Interceptor) Intercept(chain interceptor.Chain) (flux.Response, error) {
	req := chain.Request()
	bo := backoff.NewConstantBackOff(i.Config.Delay)

	for attempt := 0; ; attempt++ {
		resp, err := chain.Proceed(req)
		if err == nil {
			return resp, nil
		}

		reason, retryable := classify(err)
		if !retryable || attempt >= i.Config.MaxRetries {
			if retryable {
				i.logger().Warn("retry: giving up after max retries", map[string]any{"attempts": attempt + 1, "reason": reason})
			}
			return resp, err
		}

		i.logger().Debug("retry: scheduling attempt", map[string]any{"attempt": attempt + 1, "reason": reason})
		if i.OnRetry != nil {
			i.OnRetry(Event{Attempt: attempt + 1, Reason: reason, Err: err})
		}

		delay := bo.NextBackOff()
		timer := time.NewTimer(delay)
		select {
		case <-chain.Context().Done():
			timer.Stop()
			return resp, chain.Context().Err()
		case <-timer.C:
		}
	}
}

// classify distinguishes spec.md §4.6's retryable subset (transport-level
// I/O errors) from cancellation and every other error kind, neither of
// which this interceptor retries.
func classify(err error) (reason string, retryable bool) {
	var fe *fluxerr.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fluxerr.KindTransportError:
			return "transport_error", true
		case fluxerr.KindCancelled:
			return "cancelled", false
		default:
			return string(fe.Kind), false
		}
	}
	return "unclassified", false
}
