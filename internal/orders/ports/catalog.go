package ports

import (
	"context"

	"github.com/dejobratic/libris/internal/catalog"
)

// BookCatalog is the slice of the catalog the order engine depends on.
type BookCatalog interface {
	Get(ctx context.Context, id int64) (*catalog.Book, error)
	Reserve(ctx context.Context, id int64) error
	Unreserve(ctx context.Context, id int64) error
}

// UserDirectory validates the acting user of an order.
type UserDirectory interface {
	ValidateActor(ctx context.Context, id int64) error
}
