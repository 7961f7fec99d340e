package storage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	callDuration metric.Float64Histogram
	callErrors   metric.Int64Counter
	snapshotSize metric.Int64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.callDuration, err = meter.Float64Histogram(
		"storage_call_duration_seconds",
		metric.WithDescription("Storage gateway call duration by backend, operation and collection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storage_call_duration histogram: %w", err)
	}

	m.callErrors, err = meter.Int64Counter(
		"storage_call_errors_total",
		metric.WithDescription("Storage gateway calls that failed, excluding never-written collections"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storage_call_errors counter: %w", err)
	}

	m.snapshotSize, err = meter.Int64Histogram(
		"storage_snapshot_bytes",
		metric.WithDescription("Size of collection snapshots read or written"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storage_snapshot_bytes histogram: %w", err)
	}

	return m, nil
}

// RecordCall records one Get or Put. size is ignored for failed calls.
func (m *Metrics) RecordCall(ctx context.Context, backend, operation string, collection Collection, durationSeconds float64, size int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("operation", operation),
		attribute.String("collection", string(collection)),
	)
	m.callDuration.Record(ctx, durationSeconds, attrs)
	if err != nil {
		m.callErrors.Add(ctx, 1, attrs)
		return
	}
	m.snapshotSize.Record(ctx, int64(size), attrs)
}
