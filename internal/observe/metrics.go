// Package observe provides observability primitives for the transcript
// pipeline: OpenTelemetry metrics, a Prometheus exporter bridge, and an
// optional scrape endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/philote/TTRPG-session-notes"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SegmentsIngested counts utterances read from input tables. Use with
	// attribute.String("speaker", ...).
	SegmentsIngested metric.Int64Counter

	// RowsSkipped counts malformed input rows dropped during ingest. Use with
	// attribute.String("speaker", ...).
	RowsSkipped metric.Int64Counter

	// SegmentsRemoved counts utterances removed during cleanup. Use with
	// attribute.String("pass", ...) naming the cleanup pass.
	SegmentsRemoved metric.Int64Counter

	// SegmentsMerged counts merge events, both the gap-based merges within a
	// speaker and the same-speaker compaction after interleaving. Use with
	// attribute.String("kind", "adjacent"|"compact").
	SegmentsMerged metric.Int64Counter

	// Substitutions counts term corrections. Use with attributes:
	//   attribute.String("canonical", ...), attribute.String("method", ...)
	Substitutions metric.Int64Counter

	// PartsWritten counts transcript part files written per run.
	PartsWritten metric.Int64Counter

	// StageDuration tracks per-stage processing time. Use with
	// attribute.String("stage", ...).
	StageDuration metric.Float64Histogram
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// batch stages that range from milliseconds to whole-session merges.
var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SegmentsIngested, err = m.Int64Counter("sessionnotes.segments.ingested",
		metric.WithDescription("Total utterances read from input tables by speaker."),
	); err != nil {
		return nil, err
	}
	if met.RowsSkipped, err = m.Int64Counter("sessionnotes.rows.skipped",
		metric.WithDescription("Total malformed input rows dropped during ingest by speaker."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsRemoved, err = m.Int64Counter("sessionnotes.segments.removed",
		metric.WithDescription("Total utterances removed during cleanup by pass."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsMerged, err = m.Int64Counter("sessionnotes.segments.merged",
		metric.WithDescription("Total merge events by kind."),
	); err != nil {
		return nil, err
	}
	if met.Substitutions, err = m.Int64Counter("sessionnotes.substitutions",
		metric.WithDescription("Total term corrections by canonical term and method."),
	); err != nil {
		return nil, err
	}
	if met.PartsWritten, err = m.Int64Counter("sessionnotes.parts.written",
		metric.WithDescription("Total transcript part files written."),
	); err != nil {
		return nil, err
	}

	if met.StageDuration, err = m.Float64Histogram("sessionnotes.stage.duration",
		metric.WithDescription("Pipeline stage processing time by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRemoved records cleanup removals for one pass.
func (m *Metrics) RecordRemoved(ctx context.Context, pass string, n int64) {
	if n == 0 {
		return
	}
	m.SegmentsRemoved.Add(ctx, n,
		metric.WithAttributes(attribute.String("pass", pass)),
	)
}

// RecordMerged records merge events of one kind.
func (m *Metrics) RecordMerged(ctx context.Context, kind string, n int64) {
	if n == 0 {
		return
	}
	m.SegmentsMerged.Add(ctx, n,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordSubstitution records one term correction.
func (m *Metrics) RecordSubstitution(ctx context.Context, canonical, method string) {
	m.Substitutions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("canonical", canonical),
			attribute.String("method", method),
		),
	)
}

// TimeStage records the elapsed time of one pipeline stage. Use with defer:
//
//	defer metrics.TimeStage(ctx, "merge")()
func (m *Metrics) TimeStage(ctx context.Context, stage string) func() {
	start := time.Now()
	return func() {
		m.StageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("stage", stage)),
		)
	}
}
