package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/ports"
)

// ErrInvalidCommand wraps every CreateOrderCommand validation failure.
var ErrInvalidCommand = errors.New("invalid create order command")

type CreateOrderCommand struct {
	BookID          int64
	UserID          int64
	ReservationDate time.Time
	StartDate       domain.Date
	EndDate         domain.Date
	DailyRate       int64
}

func (c CreateOrderCommand) Validate() error {
	if c.BookID <= 0 {
		return fmt.Errorf("%w: book_id is required", ErrInvalidCommand)
	}
	if c.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidCommand)
	}
	if c.DailyRate < 0 {
		return fmt.Errorf("%w: daily_rate cannot be negative", ErrInvalidCommand)
	}
	if c.EndDate.Before(c.StartDate.Time) {
		return fmt.Errorf("%w: end_date must not precede start_date", ErrInvalidCommand)
	}
	return nil
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
}

// CreateOrderCommandHandler appends a new active order. It does not check
// book availability; callers that need the at-most-one guarantee go through
// the service's reservation path.
type CreateOrderCommandHandler struct {
	repo   ports.OrderRepository
	users  ports.UserDirectory
	events ports.EventBus
	logger *slog.Logger
}

func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	users ports.UserDirectory,
	events ports.EventBus,
	logger *slog.Logger,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		repo:   repo,
		users:  users,
		events: events,
		logger: logger,
	}
}

func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if err := h.users.ValidateActor(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	orders, err := h.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	order := domain.Order{
		ID:                     nextOrderID(orders),
		BookID:                 cmd.BookID,
		UserID:                 cmd.UserID,
		ReservationDate:        domain.TimestampOf(cmd.ReservationDate),
		StartDate:              cmd.StartDate,
		EndDate:                cmd.EndDate,
		Status:                 domain.StatusActive,
		DailyRateAtReservation: cmd.DailyRate,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.Save(ctx, append(orders, order)); err != nil {
		return nil, fmt.Errorf("save orders: %w", err)
	}

	if err := h.events.PublishOrderCreated(ctx, order); err != nil {
		h.logger.WarnContext(ctx, "order saved but failed to publish event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return &order, nil
}

func nextOrderID(orders []domain.Order) int64 {
	var max int64
	for _, o := range orders {
		if o.ID > max {
			max = o.ID
		}
	}
	return max + 1
}
