package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/libris/internal/kafka"
	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/ports"
	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, kafka.TopicOrderCreated, order, e.bus.PublishOrderCreated)
}

func (e *ObservableEventBus) PublishOrderPickedUp(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, kafka.TopicOrderPickedUp, order, e.bus.PublishOrderPickedUp)
}

func (e *ObservableEventBus) PublishOrderReturned(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, kafka.TopicOrderReturned, order, e.bus.PublishOrderReturned)
}

func (e *ObservableEventBus) PublishOrderCancelled(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, kafka.TopicOrderCancelled, order, e.bus.PublishOrderCancelled)
}

func (e *ObservableEventBus) observe(
	ctx context.Context,
	eventType string,
	order domain.Order,
	publish func(context.Context, domain.Order) error,
) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.Publish")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", order.ID),
		attribute.Int64("order.book_id", order.BookID),
		attribute.String("order.status", string(order.Status)),
		attribute.String("event.type", eventType),
	)

	start := time.Now()
	err := publish(ctx, order)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, eventType, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
