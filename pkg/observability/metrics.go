package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "testevo.requests.total"
	metricRequestDuration  = "testevo.request.duration.seconds"
	metricErrorsTotal      = "testevo.errors.total"
	metricInflightRequests = "testevo.inflight.requests"

	attrOp     = "op"
	attrStatus = "status"

	statusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s, from sub-second path
// classification calls to multi-minute clone-and-scan runs.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// REDMetrics carries the Rate, Error, Duration instruments for served
// requests. A nil *REDMetrics records nothing, so callers that run without
// a meter skip the nil checks.
type REDMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewREDMetrics registers the RED instruments on the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	var (
		m   REDMetrics
		err error
	)

	m.requests, err = mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Completed requests by operation and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	m.failures, err = mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Failed requests by operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	m.latency, err = mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	m.inflight, err = mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &m, nil
}

// RecordRequest counts one completed request and its latency. Requests with
// an error status also bump the failure counter.
func (m *REDMetrics) RecordRequest(ctx context.Context, op, status string, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)

	if status == statusError {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight bumps the in-flight gauge for op and returns the function
// that releases it. Callers defer the release around the request body.
func (m *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if m == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	m.inflight.Add(ctx, 1, attrs)

	return func() {
		m.inflight.Add(ctx, -1, attrs)
	}
}
