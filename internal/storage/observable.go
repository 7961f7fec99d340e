package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableStore wraps a Store with a span and call metrics per operation.
type ObservableStore struct {
	store   Store
	backend string
	metrics *Metrics
}

func NewObservableStore(store Store, backend string, metrics *Metrics) *ObservableStore {
	return &ObservableStore{
		store:   store,
		backend: backend,
		metrics: metrics,
	}
}

func (s *ObservableStore) Get(ctx context.Context, collection Collection) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "Store.Get",
		attribute.String("storage.backend", s.backend),
		attribute.String("storage.collection", string(collection)),
	)

	start := time.Now()
	data, err := s.store.Get(ctx, collection)

	// A never-written collection is an expected answer, not a failure.
	failure := err
	if errors.Is(err, ErrNotFound) {
		failure = nil
	}
	s.metrics.RecordCall(ctx, s.backend, "get", collection, time.Since(start).Seconds(), len(data), failure)
	telemetry.AddSpanAttributes(span, attribute.Int("storage.bytes", len(data)))
	telemetry.EndSpan(span, failure)

	return data, err
}

func (s *ObservableStore) Put(ctx context.Context, collection Collection, data []byte) error {
	ctx, span := telemetry.StartSpan(ctx, "Store.Put",
		attribute.String("storage.backend", s.backend),
		attribute.String("storage.collection", string(collection)),
		attribute.Int("storage.bytes", len(data)),
	)

	start := time.Now()
	err := s.store.Put(ctx, collection, data)
	s.metrics.RecordCall(ctx, s.backend, "put", collection, time.Since(start).Seconds(), len(data), err)
	telemetry.EndSpan(span, err)

	return err
}
