package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/metrics"
	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableCommandHandler adds a span, creation metrics and log lines
// around another CommandHandler.
type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (order *domain.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateOrderCommand.Handle",
		attribute.Int64("order.book_id", cmd.BookID),
		attribute.Int64("order.user_id", cmd.UserID),
	)

	start := time.Now()
	defer func() {
		o.metrics.RecordOrderCreationDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderCreated(ctx, err == nil)
		telemetry.EndSpan(span, err)
	}()

	order, err = o.handler.Handle(ctx, cmd)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrInvalidCommand) {
			level = slog.LevelWarn
		}
		o.logger.Log(ctx, level, "order not created",
			"error", err,
			"book_id", cmd.BookID,
			"user_id", cmd.UserID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", order.ID),
		attribute.Int64("order.daily_rate", order.DailyRateAtReservation),
		attribute.String("order.end_date", order.EndDate.String()),
	)
	o.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"book_id", order.BookID,
		"user_id", order.UserID,
		"end_date", order.EndDate.String(),
	)
	return order, nil
}
