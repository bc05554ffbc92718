package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricScanCommitsTotal = "testevo.scan.commits.total"
	metricScanDuration     = "testevo.scan.duration.seconds"
	metricScanCacheHits    = "testevo.scan.cache.hits.total"
	metricScanCacheMisses  = "testevo.scan.cache.misses.total"
)

// ScanMetrics holds OTel instruments for history scan metrics.
// A nil *ScanMetrics is valid and records nothing.
type ScanMetrics struct {
	commitsTotal metric.Int64Counter
	scanDuration metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// ScanStats holds the statistics for a single repository scan.
type ScanStats struct {
	Commits  int64
	Duration time.Duration
	CacheHit bool
}

// NewScanMetrics creates scan metric instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	commits, err := mt.Int64Counter(metricScanCommitsTotal,
		metric.WithDescription("Total commits walked"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanCommitsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricScanDuration,
		metric.WithDescription("Repository scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanDuration, err)
	}

	hits, err := mt.Int64Counter(metricScanCacheHits,
		metric.WithDescription("Scan cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanCacheHits, err)
	}

	misses, err := mt.Int64Counter(metricScanCacheMisses,
		metric.WithDescription("Scan cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanCacheMisses, err)
	}

	return &ScanMetrics{
		commitsTotal: commits,
		scanDuration: duration,
		cacheHits:    hits,
		cacheMisses:  misses,
	}, nil
}

// RecordScan records statistics for a completed repository scan.
// Safe to call on a nil receiver (no-op).
func (sm *ScanMetrics) RecordScan(ctx context.Context, stats ScanStats) {
	if sm == nil {
		return
	}

	sm.commitsTotal.Add(ctx, stats.Commits)
	sm.scanDuration.Record(ctx, stats.Duration.Seconds())

	if stats.CacheHit {
		sm.cacheHits.Add(ctx, 1)
	} else {
		sm.cacheMisses.Add(ctx, 1)
	}
}
