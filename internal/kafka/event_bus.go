package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dejobratic/libris/internal/orders/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter abstracts kafka-go's Writer for testability.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventBus publishes order lifecycle events to Kafka, one topic per event
// type, keyed by order id so a single order's events stay ordered.
type EventBus struct {
	writer messageWriter
	prefix string
}

// NewEventBus creates a Kafka publisher. Topics are named prefix + event type.
func NewEventBus(brokers []string, prefix string) *EventBus {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &EventBus{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(addrs...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
	}
}

// NewEventBusWith injects a writer; used by tests.
func NewEventBusWith(w messageWriter, prefix string) *EventBus {
	return &EventBus{writer: w, prefix: prefix}
}

func (b *EventBus) Close() error { return b.writer.Close() }

func (b *EventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, TopicOrderCreated, order)
}

func (b *EventBus) PublishOrderPickedUp(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, TopicOrderPickedUp, order)
}

func (b *EventBus) PublishOrderReturned(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, TopicOrderReturned, order)
}

func (b *EventBus) PublishOrderCancelled(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, TopicOrderCancelled, order)
}

func (b *EventBus) publish(ctx context.Context, eventType string, order domain.Order) error {
	value, err := json.Marshal(newEvent(eventType, order))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafkago.Message{
		Topic: b.prefix + eventType,
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: value,
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
