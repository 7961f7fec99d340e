package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/libris/internal/orders/ports"
)

type ListOrdersQuery struct {
	Filter ports.ListFilter
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

// Handle returns matching orders in collection order.
func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]OrderView, error) {
	orders, err := h.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		if query.Filter.Matches(o) {
			views = append(views, NewOrderView(o))
		}
	}
	return views, nil
}
