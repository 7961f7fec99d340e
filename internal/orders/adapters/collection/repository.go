package collection

import (
	"context"

	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/storage"
)

// Repository keeps orders as a single snapshot in the orders collection.
type Repository struct {
	store storage.Store
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load returns a private copy of the whole collection.
func (r *Repository) Load(ctx context.Context) ([]domain.Order, error) {
	orders, err := storage.Load(ctx, r.store, storage.Orders, []domain.Order{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out, nil
}

// Save replaces the whole collection.
func (r *Repository) Save(ctx context.Context, orders []domain.Order) error {
	if orders == nil {
		orders = []domain.Order{}
	}
	return storage.Save(ctx, r.store, storage.Orders, orders)
}
