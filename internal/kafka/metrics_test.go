package kafka

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitializeMetrics(t *testing.T) {
	t.Run("initializes all metric instruments successfully", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		if metrics.publishLatency == nil {
			t.Error("publishLatency is nil")
		}

		if metrics.eventsPublished == nil {
			t.Error("eventsPublished is nil")
		}
	})
}

func TestRecordPublish(t *testing.T) {
	t.Run("records latency and count per event type and status", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()

		metrics.RecordPublish(ctx, TopicOrderCreated, 0.2, true)
		metrics.RecordPublish(ctx, TopicOrderCancelled, 0.3, false)
		metrics.RecordPublish(ctx, TopicOrderCreated, 0.1, true)

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		var foundLatency, foundCount bool
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch m.Name {
				case "order_event_publish_latency_seconds":
					foundLatency = true
					histogram, ok := m.Data.(metricdata.Histogram[float64])
					if !ok {
						t.Fatal("Expected Histogram[float64] data type")
					}
					if len(histogram.DataPoints) != 2 {
						t.Errorf("Expected 2 data points, got %d", len(histogram.DataPoints))
					}
				case "order_events_published_total":
					foundCount = true
					sum, ok := m.Data.(metricdata.Sum[int64])
					if !ok {
						t.Fatal("Expected Sum[int64] data type")
					}
					var total int64
					for _, dp := range sum.DataPoints {
						total += dp.Value
					}
					if total != 3 {
						t.Errorf("Expected 3 events, got %d", total)
					}
				}
			}
		}

		if !foundLatency {
			t.Error("order_event_publish_latency_seconds metric not found")
		}
		if !foundCount {
			t.Error("order_events_published_total metric not found")
		}
	})
}
