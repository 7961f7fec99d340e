package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/ports"
)

// OrderView is the read model for an order: the stored record plus the late
// fee derived from it.
type OrderView struct {
	domain.Order
	DaysLate int64 `json:"daysLate"`
	LateFee  int64 `json:"lateFee"`
}

func NewOrderView(o domain.Order) OrderView {
	view := OrderView{Order: o, LateFee: domain.CalculateFine(o)}
	if o.Status == domain.StatusReturned && o.ReturnedDate != nil {
		view.DaysLate = domain.DaysLate(o.EndDate, *o.ReturnedDate)
	}
	return view
}

// GetOrderQuery represents a request to retrieve an order by its ID.
type GetOrderQuery struct {
	OrderID int64
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order if found.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

// Handle executes the query and retrieves the order.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders, err := h.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	for _, o := range orders {
		if o.ID == query.OrderID {
			view := NewOrderView(o)
			return &view, nil
		}
	}

	return nil, ports.ErrNotFound
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if q.OrderID <= 0 {
		return errors.New("order_id is required")
	}
	return nil
}
