package observe_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/philote/TTRPG-session-notes/internal/observe"
)

func TestNewMetrics_RecordsThroughProvider(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}

	ctx := context.Background()
	m.SegmentsIngested.Add(ctx, 42)
	m.RecordRemoved(ctx, "short", 3)
	m.RecordMerged(ctx, "adjacent", 5)
	m.RecordSubstitution(ctx, "Strahd", "termmap")
	m.TimeStage(ctx, "merge")()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("no scope metrics collected")
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, mtr := range sm.Metrics {
			names[mtr.Name] = true
		}
	}
	for _, want := range []string{
		"sessionnotes.segments.ingested",
		"sessionnotes.segments.removed",
		"sessionnotes.segments.merged",
		"sessionnotes.substitutions",
		"sessionnotes.stage.duration",
	} {
		if !names[want] {
			t.Errorf("metric %q was not collected; got %v", want, names)
		}
	}
}

func TestRecordHelpers_SkipZeroCounts(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}

	ctx := context.Background()
	m.RecordRemoved(ctx, "silence", 0)
	m.RecordMerged(ctx, "compact", 0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, mtr := range sm.Metrics {
			if mtr.Name == "sessionnotes.segments.removed" || mtr.Name == "sessionnotes.segments.merged" {
				t.Errorf("zero-count helper recorded metric %q", mtr.Name)
			}
		}
	}
}
