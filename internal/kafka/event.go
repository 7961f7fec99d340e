package kafka

import (
	"time"

	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/google/uuid"
)

const (
	TopicOrderCreated   = "order.created"
	TopicOrderPickedUp  = "order.picked_up"
	TopicOrderReturned  = "order.returned"
	TopicOrderCancelled = "order.cancelled"
)

// Event is the envelope published for every order transition.
type Event struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Order      domain.Order `json:"order"`
	Fine       int64        `json:"fine"`
}

func newEvent(eventType string, order domain.Order) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Order:      order,
		Fine:       domain.CalculateFine(order),
	}
}
