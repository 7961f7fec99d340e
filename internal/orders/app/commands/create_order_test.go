package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/libris/internal/orders/app/commands"
	"github.com/dejobratic/libris/internal/orders/domain"
)

type mockRepository struct {
	orders []domain.Order
	loadFn func(ctx context.Context) ([]domain.Order, error)
	saveFn func(ctx context.Context, orders []domain.Order) error
	saves  int
}

func (m *mockRepository) Load(ctx context.Context) ([]domain.Order, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	out := make([]domain.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

func (m *mockRepository) Save(ctx context.Context, orders []domain.Order) error {
	m.saves++
	if m.saveFn != nil {
		return m.saveFn(ctx, orders)
	}
	m.orders = orders
	return nil
}

type mockUsers struct {
	validateActorFn func(ctx context.Context, id int64) error
}

func (m *mockUsers) ValidateActor(ctx context.Context, id int64) error {
	if m.validateActorFn != nil {
		return m.validateActorFn(ctx, id)
	}
	return nil
}

type mockEventBus struct {
	publishOrderCreatedFn func(ctx context.Context, order domain.Order) error
	created               []domain.Order
}

func (m *mockEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	m.created = append(m.created, order)
	if m.publishOrderCreatedFn != nil {
		return m.publishOrderCreatedFn(ctx, order)
	}
	return nil
}

func (m *mockEventBus) PublishOrderPickedUp(ctx context.Context, order domain.Order) error {
	return nil
}

func (m *mockEventBus) PublishOrderReturned(ctx context.Context, order domain.Order) error {
	return nil
}

func (m *mockEventBus) PublishOrderCancelled(ctx context.Context, order domain.Order) error {
	return nil
}

func newHandler(repo *mockRepository, users *mockUsers, events *mockEventBus) *commands.CreateOrderCommandHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return commands.NewCreateOrderCommandHandler(repo, users, events, logger)
}

func validCommand() commands.CreateOrderCommand {
	start := domain.DateOf(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	return commands.CreateOrderCommand{
		BookID:          3,
		UserID:          7,
		ReservationDate: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		StartDate:       start,
		EndDate:         start.AddDays(7),
		DailyRate:       1200,
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("creates active order with id 1 on empty collection", func(t *testing.T) {
		repo := &mockRepository{}
		events := &mockEventBus{}
		handler := newHandler(repo, &mockUsers{}, events)

		cmd := validCommand()
		order, err := handler.Handle(context.Background(), cmd)

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ID != 1 {
			t.Errorf("expected id 1, got %d", order.ID)
		}

		if order.Status != domain.StatusActive {
			t.Errorf("expected status %s, got %s", domain.StatusActive, order.Status)
		}

		if order.DailyRateAtReservation != cmd.DailyRate {
			t.Errorf("expected rate %d, got %d", cmd.DailyRate, order.DailyRateAtReservation)
		}

		if order.ReturnedDate != nil {
			t.Error("expected no returned date")
		}

		if len(repo.orders) != 1 {
			t.Fatalf("expected 1 stored order, got %d", len(repo.orders))
		}

		if len(events.created) != 1 || events.created[0].ID != order.ID {
			t.Errorf("expected one created event for order %d, got %+v", order.ID, events.created)
		}
	})

	t.Run("allocates max id plus one", func(t *testing.T) {
		repo := &mockRepository{orders: []domain.Order{
			{ID: 4, BookID: 1, UserID: 1, Status: domain.StatusReturned},
			{ID: 9, BookID: 2, UserID: 1, Status: domain.StatusCancelled},
			{ID: 2, BookID: 3, UserID: 1, Status: domain.StatusActive},
		}}
		handler := newHandler(repo, &mockUsers{}, &mockEventBus{})

		order, err := handler.Handle(context.Background(), validCommand())

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ID != 10 {
			t.Errorf("expected id 10, got %d", order.ID)
		}

		if len(repo.orders) != 4 {
			t.Errorf("expected 4 stored orders, got %d", len(repo.orders))
		}
	})

	t.Run("returns validation error when book is missing", func(t *testing.T) {
		repo := &mockRepository{}
		handler := newHandler(repo, &mockUsers{}, &mockEventBus{})

		cmd := validCommand()
		cmd.BookID = 0

		order, err := handler.Handle(context.Background(), cmd)

		if !errors.Is(err, commands.ErrInvalidCommand) || !strings.Contains(err.Error(), "book_id is required") {
			t.Errorf("expected invalid command error for book_id, got %v", err)
		}

		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}

		if repo.saves != 0 {
			t.Errorf("expected no writes, got %d", repo.saves)
		}
	})

	t.Run("returns validation error when end precedes start", func(t *testing.T) {
		handler := newHandler(&mockRepository{}, &mockUsers{}, &mockEventBus{})

		cmd := validCommand()
		cmd.EndDate = cmd.StartDate.AddDays(-1)

		if _, err := handler.Handle(context.Background(), cmd); !errors.Is(err, commands.ErrInvalidCommand) {
			t.Fatalf("expected ErrInvalidCommand, got %v", err)
		}
	})

	t.Run("rejects unknown or blocked actor", func(t *testing.T) {
		actorErr := errors.New("account is blocked")
		repo := &mockRepository{}
		users := &mockUsers{
			validateActorFn: func(ctx context.Context, id int64) error {
				return actorErr
			},
		}
		handler := newHandler(repo, users, &mockEventBus{})

		_, err := handler.Handle(context.Background(), validCommand())

		if !errors.Is(err, actorErr) {
			t.Errorf("expected actor error, got: %v", err)
		}

		if repo.saves != 0 {
			t.Errorf("expected no writes, got %d", repo.saves)
		}
	})

	t.Run("returns error when repository fails", func(t *testing.T) {
		repoErr := errors.New("storage unavailable")
		repo := &mockRepository{
			saveFn: func(ctx context.Context, orders []domain.Order) error {
				return repoErr
			},
		}
		events := &mockEventBus{}
		handler := newHandler(repo, &mockUsers{}, events)

		order, err := handler.Handle(context.Background(), validCommand())

		if !errors.Is(err, repoErr) {
			t.Errorf("expected error to wrap repository error, got: %v", err)
		}

		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}

		if len(events.created) != 0 {
			t.Error("expected no event for unsaved order")
		}
	})

	t.Run("returns order when event publishing fails", func(t *testing.T) {
		events := &mockEventBus{
			publishOrderCreatedFn: func(ctx context.Context, order domain.Order) error {
				return errors.New("kafka unavailable")
			},
		}
		repo := &mockRepository{}
		handler := newHandler(repo, &mockUsers{}, events)

		order, err := handler.Handle(context.Background(), validCommand())

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order == nil || len(repo.orders) != 1 {
			t.Fatal("expected order to be persisted despite publish failure")
		}
	})
}
