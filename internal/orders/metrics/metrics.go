package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersCreatedTotal    metric.Int64Counter
	orderCreationDuration metric.Float64Histogram
	transitionsTotal      metric.Int64Counter
	cancelledTotal        metric.Int64Counter
	finesTotal            metric.Int64Counter
	sweepDuration         metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of order creation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.transitionsTotal, err = meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Pickup and return requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_transitions_total counter: %w", err)
	}

	m.cancelledTotal, err = meter.Int64Counter(
		"orders_cancelled_total",
		metric.WithDescription("Active orders cancelled by the staleness sweep"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_cancelled_total counter: %w", err)
	}

	m.finesTotal, err = meter.Int64Counter(
		"order_fines_total",
		metric.WithDescription("Late fees accrued on returned orders"),
		metric.WithUnit("{currency_unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_fines_total counter: %w", err)
	}

	m.sweepDuration, err = meter.Float64Histogram(
		"order_sweep_duration_seconds",
		metric.WithDescription("Duration of stale reservation sweeps"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_sweep_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

// RecordTransition counts a pickup or return. reason is empty when applied.
func (m *Metrics) RecordTransition(ctx context.Context, transition string, applied bool, reason string) {
	outcome := "applied"
	if !applied {
		outcome = "ignored"
	}
	attrs := []attribute.KeyValue{
		attribute.String("transition", transition),
		attribute.String("outcome", outcome),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.transitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCancelled(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.cancelledTotal.Add(ctx, int64(count))
}

func (m *Metrics) RecordFine(ctx context.Context, amount int64) {
	if amount <= 0 {
		return
	}
	m.finesTotal.Add(ctx, amount)
}

func (m *Metrics) RecordSweepDuration(ctx context.Context, durationSeconds float64) {
	m.sweepDuration.Record(ctx, durationSeconds)
}
