package metrics

import (
	"errors"
	"time"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
	"github.com/fluxhttp/flux/fluxlog"
	"github.com/fluxhttp/flux/interceptor"
)

// Interceptor wraps chain invocation to record a RequestEvent on success
// and an ErrorEvent on failure, with start/end timestamps and caller-
// supplied tag injection, per spec.md §4.8.
type Interceptor struct {
	Collector Collector
	Tags      func(req flux.Request) map[string]string

	// Logger receives lifecycle events; defaults to fluxlog.Default (silent).
	Logger fluxlog.Logger
}

// New constructs a metrics interceptor.
func New(collector Collector, tags func(req flux.Request) map[string]string) *Interceptor {
	return &Interceptor{Collector: collector, Tags: tags, Logger: fluxlog.Default}
}

func (i *Interceptor) logger() fluxlog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return fluxlog.Default
}

func (i *Interceptor) Intercept(chain interceptor.Chain) (flux.Response, error) {
	req := chain.Request()
	start := time.Now()

	var tags map[string]string
	if i.Tags != nil {
		tags = i.Tags(req)
	}

	resp, err := chain.Proceed(req)
	end := time.Now()

	if err != nil {
		var fe *fluxerr.Error
		kind := fluxerr.Kind("unknown")
		if errors.As(err, &fe) {
			kind = fe.Kind
		}
		i.logger().Warn("metrics: request failed", map[string]any{"url": req.URL().String(), "kind": string(kind)})
		i.Collector.RecordError(ErrorEvent{
			Method: req.Method(),
			URL:    req.URL().String(),
			Kind:   kind,
			Start:  start,
			End:    end,
			Tags:   tags,
		})
		return resp, err
	}

	i.logger().Debug("metrics: request recorded", map[string]any{"url": req.URL().String(), "status": resp.Status})
	i.Collector.RecordRequest(RequestEvent{
		Method:       req.Method(),
		URL:          req.URL().String(),
		Status:       resp.Status,
		Start:        start,
		End:          end,
		ResponseSize: len(resp.Body),
		Tags:         tags,
	})
	return resp, nil
}
