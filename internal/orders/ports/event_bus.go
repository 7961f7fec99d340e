package ports

import (
	"context"

	"github.com/dejobratic/libris/internal/orders/domain"
)

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
	PublishOrderPickedUp(ctx context.Context, order domain.Order) error
	PublishOrderReturned(ctx context.Context, order domain.Order) error
	PublishOrderCancelled(ctx context.Context, order domain.Order) error
}
