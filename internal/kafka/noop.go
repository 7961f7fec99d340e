package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/libris/internal/orders/domain"
)

// NoopEventBus logs events without sending them to Kafka. Used when no brokers are configured.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	slog.DebugContext(ctx, "event::order_created", "order_id", order.ID, "book_id", order.BookID)
	return nil
}

func (n *NoopEventBus) PublishOrderPickedUp(ctx context.Context, order domain.Order) error {
	slog.DebugContext(ctx, "event::order_picked_up", "order_id", order.ID)
	return nil
}

func (n *NoopEventBus) PublishOrderReturned(ctx context.Context, order domain.Order) error {
	slog.DebugContext(ctx, "event::order_returned", "order_id", order.ID)
	return nil
}

func (n *NoopEventBus) PublishOrderCancelled(ctx context.Context, order domain.Order) error {
	slog.DebugContext(ctx, "event::order_cancelled", "order_id", order.ID)
	return nil
}
