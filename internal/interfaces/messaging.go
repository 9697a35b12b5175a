package interfaces

import (
	"context"
	"time"

	"github.com/bekzatkz/dastarhan/internal/domain"
)

// OrderEventMessage is published to the orders topic exchange after an
// order write commits. Delivery is best effort: a publish failure is
// logged, never rolled into the order transition.
type OrderEventMessage struct {
	Event        domain.EventType `json:"event"`
	OrderNumber  string           `json:"order_number"`
	OrderID      int64            `json:"order_id"`
	RestaurantID int64            `json:"restaurant_id"`
	CustomerID   int64            `json:"customer_id"`
	Status       domain.Status    `json:"status"`
	Total        float64          `json:"total"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

type StatusUpdateMessage struct {
	OrderNumber string        `json:"order_number"`
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	ChangedBy   string        `json:"changed_by"`
	Timestamp   time.Time     `json:"timestamp"`
}

type MessagePublisher interface {
	PublishOrderEvent(ctx context.Context, msg OrderEventMessage) error
	PublishStatusUpdate(ctx context.Context, msg StatusUpdateMessage) error
}
