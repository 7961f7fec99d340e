package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dejobratic/libris/internal/orders/app/commands"
	"github.com/dejobratic/libris/internal/orders/app/queries"
	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/metrics"
	"github.com/dejobratic/libris/internal/orders/ports"
	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultRentalDays is the loan length used when a reservation does not name one.
const DefaultRentalDays = 7

// ErrBookUnavailable is returned when a reservation targets a book that is
// already held by another order.
var ErrBookUnavailable = errors.New("book is not available")

// Service bundles the order lifecycle use cases. All read-modify-write
// sequences on the orders collection run under mu; reservations additionally
// serialise per book.
type Service struct {
	repo      ports.OrderRepository
	catalog   ports.BookCatalog
	events    ports.EventBus
	idemStore ports.IdempotencyStore
	logger    *slog.Logger
	metrics   *metrics.Metrics

	createOrderHandler commands.CommandHandler
	getOrderHandler    *queries.GetOrderQueryHandler
	listOrdersHandler  *queries.ListOrdersQueryHandler

	now        func() time.Time
	ttl        time.Duration
	rentalDays int

	mu        sync.Mutex
	bookLocks *keyedMutex
}

type Option func(*Service)

// WithClock replaces the wall clock; tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithReservationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithRentalDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.rentalDays = days
		}
	}
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	catalog ports.BookCatalog,
	users ports.UserDirectory,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Service {
	coreHandler := commands.NewCreateOrderCommandHandler(repo, users, events, logger)
	observableHandler := commands.NewObservableCommandHandler(coreHandler, logger, metrics)

	s := &Service{
		repo:               repo,
		catalog:            catalog,
		events:             events,
		idemStore:          idem,
		logger:             logger,
		metrics:            metrics,
		createOrderHandler: observableHandler,
		getOrderHandler:    queries.NewGetOrderQueryHandler(repo),
		listOrdersHandler:  queries.NewListOrdersQueryHandler(repo),
		now:                func() time.Time { return time.Now().UTC() },
		ttl:                domain.ReservationTTL,
		rentalDays:         DefaultRentalDays,
		bookLocks:          newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() domain.Date {
	return domain.DateOf(s.now())
}

// CreateOrderInput captures payload for creating an order.
type CreateOrderInput struct {
	BookID          int64
	UserID          int64
	ReservationDate time.Time
	StartDate       domain.Date
	EndDate         domain.Date
	DailyRate       int64
}

// CreateOrder appends an active order. Book availability is the caller's
// responsibility; use ReserveBook to have it checked.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := commands.CreateOrderCommand{
		BookID:          input.BookID,
		UserID:          input.UserID,
		ReservationDate: input.ReservationDate,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		DailyRate:       input.DailyRate,
	}
	return s.createOrderHandler.Handle(ctx, cmd)
}

// ReserveBook marks an available book unavailable and opens an active order
// for it at the book's current daily price. rentalDays <= 0 uses the default.
func (s *Service) ReserveBook(ctx context.Context, bookID, userID int64, rentalDays int) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.ReserveBook")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", bookID),
		attribute.Int64("user.id", userID),
	)

	unlock := s.bookLocks.Lock(bookID)
	defer unlock()

	book, err := s.catalog.Get(ctx, bookID)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}
	if !book.Available {
		telemetry.RecordSpanError(span, ErrBookUnavailable)
		return nil, ErrBookUnavailable
	}

	if err := s.catalog.Reserve(ctx, bookID); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("reserve book: %w", err)
	}

	if rentalDays <= 0 {
		rentalDays = s.rentalDays
	}
	now := s.now()
	today := domain.DateOf(now)

	order, err := s.CreateOrder(ctx, CreateOrderInput{
		BookID:          bookID,
		UserID:          userID,
		ReservationDate: now,
		StartDate:       today,
		EndDate:         today.AddDays(rentalDays),
		DailyRate:       book.DailyPrice,
	})
	if err != nil {
		if uerr := s.catalog.Unreserve(ctx, bookID); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to release book after order error",
				"book_id", bookID,
				"error", uerr,
			)
		}
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int64("order.id", order.ID))
	telemetry.SetSpanSuccess(span)
	return order, nil
}

// Pickup moves an active order to picked_up and resets its start date to
// today. Anything else is ignored without touching storage.
func (s *Service) Pickup(ctx context.Context, orderID int64) (domain.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.Pickup")
	defer span.End()
	telemetry.AddSpanAttributes(span, attribute.Int64("order.id", orderID))

	s.mu.Lock()
	defer s.mu.Unlock()

	order, outcome, err := s.transition(ctx, orderID, func(o *domain.Order) domain.Outcome {
		return o.Pickup(s.today())
	})
	s.recordTransition(ctx, "pickup", outcome, err)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return outcome, err
	}
	if !outcome.Applied {
		return outcome, nil
	}

	s.logger.InfoContext(ctx, "order picked up", "order_id", order.ID, "book_id", order.BookID)
	s.publish(ctx, "order.picked_up", order, s.events.PublishOrderPickedUp)
	telemetry.SetSpanSuccess(span)
	return outcome, nil
}

// ReturnBook moves a picked_up order to returned, stamps today as the return
// date and releases the book. Anything else is ignored and the book is not
// released.
func (s *Service) ReturnBook(ctx context.Context, orderID int64) (domain.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.ReturnBook")
	defer span.End()
	telemetry.AddSpanAttributes(span, attribute.Int64("order.id", orderID))

	s.mu.Lock()
	defer s.mu.Unlock()

	order, outcome, err := s.transition(ctx, orderID, func(o *domain.Order) domain.Outcome {
		return o.Return(s.today())
	})
	s.recordTransition(ctx, "return", outcome, err)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return outcome, err
	}
	if !outcome.Applied {
		return outcome, nil
	}

	if err := s.catalog.Unreserve(ctx, order.BookID); err != nil {
		telemetry.RecordSpanError(span, err)
		return outcome, fmt.Errorf("release book %d: %w", order.BookID, err)
	}

	fine := domain.CalculateFine(order)
	s.metrics.RecordFine(ctx, fine)
	s.logger.InfoContext(ctx, "order returned",
		"order_id", order.ID,
		"book_id", order.BookID,
		"late_fee", fine,
	)
	s.publish(ctx, "order.returned", order, s.events.PublishOrderReturned)
	telemetry.SetSpanSuccess(span)
	return outcome, nil
}

// transition applies fn to the order with the given id and persists the
// collection only when fn reports the change as applied. Callers hold mu.
func (s *Service) transition(ctx context.Context, orderID int64, fn func(*domain.Order) domain.Outcome) (domain.Order, domain.Outcome, error) {
	orders, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Order{}, domain.Outcome{}, fmt.Errorf("load orders: %w", err)
	}

	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		outcome := fn(&orders[i])
		if !outcome.Applied {
			return orders[i], outcome, nil
		}
		if err := s.repo.Save(ctx, orders); err != nil {
			return domain.Order{}, domain.Outcome{}, fmt.Errorf("save orders: %w", err)
		}
		return orders[i], outcome, nil
	}

	return domain.Order{}, domain.Ignored(domain.ReasonNotFound), nil
}

// SweepResult lists the orders cancelled by one staleness sweep.
type SweepResult struct {
	Cancelled []int64 `json:"cancelled"`
}

// CheckStaleReservations cancels every active order whose reservation is
// older than the TTL and releases its book. Storage is written only when at
// least one order changed, so repeated sweeps are no-ops.
func (s *Service) CheckStaleReservations(ctx context.Context) (SweepResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.CheckStaleReservations")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordSweepDuration(ctx, time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.repo.Load(ctx)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return SweepResult{}, fmt.Errorf("load orders: %w", err)
	}

	now := s.now()
	var expired []domain.Order
	for i := range orders {
		if orders[i].Expire(now, s.ttl) {
			expired = append(expired, orders[i])
		}
	}

	result := SweepResult{Cancelled: make([]int64, 0, len(expired))}
	if len(expired) == 0 {
		telemetry.SetSpanSuccess(span)
		return result, nil
	}

	if err := s.repo.Save(ctx, orders); err != nil {
		telemetry.RecordSpanError(span, err)
		return SweepResult{}, fmt.Errorf("save orders: %w", err)
	}

	var errs []error
	for _, o := range expired {
		result.Cancelled = append(result.Cancelled, o.ID)
		telemetry.AddSpanEvent(span, "order.cancelled",
			attribute.Int64("order.id", o.ID),
			attribute.Int64("book.id", o.BookID),
		)
		if err := s.catalog.Unreserve(ctx, o.BookID); err != nil {
			errs = append(errs, fmt.Errorf("release book %d: %w", o.BookID, err))
			continue
		}
		s.publish(ctx, "order.cancelled", o, s.events.PublishOrderCancelled)
	}

	s.metrics.RecordCancelled(ctx, len(expired))
	telemetry.AddSpanAttributes(span, attribute.Int("orders.cancelled", len(expired)))
	s.logger.InfoContext(ctx, "stale reservations cancelled",
		"count", len(expired),
		"order_ids", result.Cancelled,
	)

	if err := errors.Join(errs...); err != nil {
		telemetry.RecordSpanError(span, err)
		return result, err
	}
	telemetry.SetSpanSuccess(span)
	return result, nil
}

// ListOrders expires stale reservations and then returns the matching orders.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]queries.OrderView, error) {
	if _, err := s.CheckStaleReservations(ctx); err != nil {
		return nil, err
	}
	return s.listOrdersHandler.Handle(ctx, queries.ListOrdersQuery{Filter: filter})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id int64) (*queries.OrderView, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}

func (s *Service) publish(ctx context.Context, event string, order domain.Order, fn func(context.Context, domain.Order) error) {
	if err := fn(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event", event,
			"order_id", order.ID,
			"error", err,
		)
	}
}

func (s *Service) recordTransition(ctx context.Context, name string, outcome domain.Outcome, err error) {
	if err != nil {
		return
	}
	s.metrics.RecordTransition(ctx, name, outcome.Applied, string(outcome.Reason))
}
