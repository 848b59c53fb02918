package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fluxhttp/flux/cache"
)

// OtelCollector is the 5th Collector composition from SPEC_FULL §5.8: it
// translates RequestEvent/ErrorEvent/RetryEvent/CacheEvent into
// OpenTelemetry instruments, grounded on gomind's resilience.OTelMetricsCollector
// shape (a struct of pre-built instruments fed by a single context).
type OtelCollector struct {
	ctx context.Context

	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	errorCount      metric.Int64Counter
	retryCount      metric.Int64Counter
	cacheCount      metric.Int64Counter
}

// NewOtelCollector builds the instrument set on meter and returns a
// Collector that records against them under ctx.
func NewOtelCollector(ctx context.Context, meter metric.Meter) (*OtelCollector, error) {
	requestDuration, err := meter.Float64Histogram(
		"flux.request.duration",
		metric.WithDescription("Duration of flux HTTP requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	requestCount, err := meter.Int64Counter(
		"flux.request.count",
		metric.WithDescription("Count of flux HTTP requests by method and status"),
	)
	if err != nil {
		return nil, err
	}
	errorCount, err := meter.Int64Counter(
		"flux.error.count",
		metric.WithDescription("Count of flux request failures by error kind"),
	)
	if err != nil {
		return nil, err
	}
	retryCount, err := meter.Int64Counter(
		"flux.retry.count",
		metric.WithDescription("Count of retried attempts by reason"),
	)
	if err != nil {
		return nil, err
	}
	cacheCount, err := meter.Int64Counter(
		"flux.cache.result.count",
		metric.WithDescription("Count of cache policy outcomes by result"),
	)
	if err != nil {
		return nil, err
	}

	return &OtelCollector{
		ctx:             ctx,
		requestDuration: requestDuration,
		requestCount:    requestCount,
		errorCount:      errorCount,
		retryCount:      retryCount,
		cacheCount:      cacheCount,
	}, nil
}

func (o *OtelCollector) RecordRequest(e RequestEvent) {
	attrs := metric.WithAttributes(
		attribute.String("method", string(e.Method)),
		attribute.Int("status", e.Status),
	)
	o.requestCount.Add(o.ctx, 1, attrs)
	o.requestDuration.Record(o.ctx, e.Duration().Seconds(), attrs)
}

func (o *OtelCollector) RecordError(e ErrorEvent) {
	o.errorCount.Add(o.ctx, 1, metric.WithAttributes(
		attribute.String("method", string(e.Method)),
		attribute.String("kind", string(e.Kind)),
	))
}

func (o *OtelCollector) RecordRetry(e RetryEvent) {
	o.retryCount.Add(o.ctx, 1, metric.WithAttributes(
		attribute.String("method", string(e.Method)),
		attribute.String("reason", e.Reason),
	))
}

func (o *OtelCollector) RecordCache(e CacheEvent) {
	o.cacheCount.Add(o.ctx, 1, metric.WithAttributes(
		attribute.String("method", string(e.Method)),
		attribute.String("result", resultLabel(e.Result)),
	))
}

func resultLabel(r cache.Result) string { return r.String() }
