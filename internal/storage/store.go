package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names a whole-snapshot value held by a Store.
type Collection string

const (
	Books       Collection = "books"
	Orders      Collection = "orders"
	Users       Collection = "users"
	Passwords   Collection = "passwords"
	Idempotency Collection = "idempotency"
)

// ErrNotFound is returned when a collection has never been written.
var ErrNotFound = errors.New("collection not found")

// Store persists collections as opaque snapshots. Every Put replaces the
// entire collection; there are no partial updates and no transactions.
type Store interface {
	Get(ctx context.Context, collection Collection) ([]byte, error)
	Put(ctx context.Context, collection Collection, data []byte) error
}

// Load decodes a collection snapshot into T. A collection that was never
// written yields fallback.
func Load[T any](ctx context.Context, store Store, collection Collection, fallback T) (T, error) {
	data, err := store.Get(ctx, collection)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}
		return fallback, fmt.Errorf("load %s: %w", collection, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return fallback, fmt.Errorf("decode %s: %w", collection, err)
	}
	return value, nil
}

// Save encodes value and replaces the collection with it.
func Save[T any](ctx context.Context, store Store, collection Collection, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := store.Put(ctx, collection, data); err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}
