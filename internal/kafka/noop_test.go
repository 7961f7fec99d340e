package kafka

import (
	"context"
	"testing"

	"github.com/dejobratic/libris/internal/orders/domain"
)

func TestNoopEventBus(t *testing.T) {
	bus := NewNoopEventBus()
	ctx := context.Background()
	order := domain.Order{ID: 1}

	for name, publish := range map[string]func(context.Context, domain.Order) error{
		"created":   bus.PublishOrderCreated,
		"picked_up": bus.PublishOrderPickedUp,
		"returned":  bus.PublishOrderReturned,
		"cancelled": bus.PublishOrderCancelled,
	} {
		if err := publish(ctx, order); err != nil {
			t.Errorf("%s: expected nil error, got %v", name, err)
		}
	}
}
