package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/libris/internal/orders/domain"
)

// OrderRepository loads and stores the whole orders collection. Callers read
// the snapshot, mutate it and write it back; there are no partial updates.
type OrderRepository interface {
	Load(ctx context.Context) ([]domain.Order, error)
	Save(ctx context.Context, orders []domain.Order) error
}

// ListFilter narrows list queries by user and status.
type ListFilter struct {
	UserID *int64
	Status *domain.OrderStatus
}

func (f ListFilter) Matches(o domain.Order) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	return true
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
)
