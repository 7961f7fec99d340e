package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, Collection) ([]byte, error) { return nil, f.err }
func (f failingStore) Put(context.Context, Collection, []byte) error   { return f.err }

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func TestObservableStore_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	metrics, reader := newTestMetrics(t)
	st := NewObservableStore(NewMemoryStore(), "memory", metrics)

	_, err := st.Get(ctx, Orders)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, st.Put(ctx, Orders, []byte(`[{"id":1}]`)))
	got, err := st.Get(ctx, Orders)
	require.NoError(t, err)
	require.Equal(t, `[{"id":1}]`, string(got))

	data := collect(t, reader)

	duration := data["storage_call_duration_seconds"].(metricdata.Histogram[float64])
	var calls uint64
	for _, dp := range duration.DataPoints {
		calls += dp.Count
	}
	require.Equal(t, uint64(3), calls)

	_, hasErrors := data["storage_call_errors_total"]
	require.False(t, hasErrors, "a never-written collection is not an error")

	size := data["storage_snapshot_bytes"].(metricdata.Histogram[int64])
	var total int64
	for _, dp := range size.DataPoints {
		total += dp.Sum
	}
	require.Equal(t, int64(20), total)
}

func TestObservableStore_CountsFailures(t *testing.T) {
	ctx := context.Background()
	metrics, reader := newTestMetrics(t)
	boom := errors.New("connection reset")
	st := NewObservableStore(failingStore{err: boom}, "postgres", metrics)

	_, err := st.Get(ctx, Books)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, st.Put(ctx, Books, []byte(`[]`)), boom)

	errs := collect(t, reader)["storage_call_errors_total"].(metricdata.Sum[int64])
	var total int64
	for _, dp := range errs.DataPoints {
		total += dp.Value
	}
	require.Equal(t, int64(2), total)
}
