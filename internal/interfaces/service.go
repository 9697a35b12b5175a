package interfaces

import (
	"context"
	"time"

	"github.com/bekzatkz/dastarhan/internal/domain"
)

// OrderOrchestrator sequences money computation, inventory adjustment,
// the state machine, aggregate updates and analytics rollups for every
// lifecycle command. The order write is the durability boundary; stats
// and rollup failures never roll it back.
type OrderOrchestrator interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	Transition(ctx context.Context, orderNumber string, target domain.Status, actor string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderNumber, reason, actor string) (*domain.Order, error)
	RecordRating(ctx context.Context, orderNumber string, rating int) (*domain.Order, error)
}

// ReportingService is the read side: order tracking and analytics
// summaries over daily buckets. It never writes.
type ReportingService interface {
	GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatusResponse, error)
	GetOrderHistory(ctx context.Context, orderNumber string) ([]*domain.StatusLog, error)
	GetAnalytics(ctx context.Context, restaurantID int64, period domain.Period, day time.Time) (*domain.AnalyticsSummary, error)
}

// RepairService re-derives aggregates from order history for every
// restaurant that has a pending repair entry.
type RepairService interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RunOnce(ctx context.Context) (int, error)
}

type CreateOrderCommand struct {
	CustomerID      int64
	RestaurantID    int64
	OrderType       string
	DeliveryAddress *string
	PaymentMethod   string
	Discount        float64
	Items           []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	MenuItemID int64
	Quantity   int
	AddOns     []domain.AddOn
}

type OrderStatusResponse struct {
	OrderNumber   string
	CurrentStatus domain.Status
	UpdatedAt     time.Time
	Pricing       domain.Pricing
	Timing        domain.Timing
}
