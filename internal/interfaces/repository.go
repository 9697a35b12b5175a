package interfaces

import (
	"context"
	"time"

	"github.com/bekzatkz/dastarhan/internal/domain"
)

type OrderRepository interface {
	// Create inserts the order, its lines and the initial status log in
	// one transaction. The same transaction decrements stock for every
	// line (failing the whole insert on a sold-out item) and seeds the
	// pending order_created event records, so an aborted insert leaves
	// no stock or event trace behind.
	Create(ctx context.Context, order *domain.Order) error
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	// Update persists status/timing/cancellation/rating changes guarded
	// by the optimistic version column. A lost race returns
	// domain.ConcurrencyConflictError. Pending event records for the
	// given events are written in the same transaction as the update.
	Update(ctx context.Context, order *domain.Order, events ...domain.EventType) error
	GenerateOrderNumber(ctx context.Context) (string, error)
	LogStatus(ctx context.Context, orderID int64, status domain.Status, changedBy string) error
	GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error)
	// ListByRestaurant returns the full order history of one restaurant,
	// oldest first. The repair job re-derives aggregates from it.
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]*domain.Order, error)
	// ListByCustomer returns every order the customer placed at any
	// restaurant, oldest first. Customer aggregates span restaurants, so
	// repairing them needs the whole history.
	ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)
}

type CatalogRepository interface {
	FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error)
	// EvictMenuItem drops any cached copy of the item so the next read
	// sees the stock written by the order transaction. A no-op on the
	// uncached repository.
	EvictMenuItem(ctx context.Context, itemID int64) error
}

type StatsRepository interface {
	// ApplyRestaurantOrder increments order count and revenue and folds
	// the revenue into the moving average, all in one atomic statement.
	ApplyRestaurantOrder(ctx context.Context, restaurantID int64, revenue float64) error
	// ApplyCustomerOrder increments the customer counters and returns the
	// resulting lifetime spend for the tier recompute.
	ApplyCustomerOrder(ctx context.Context, customerID int64, amount float64, points int64, orderDate time.Time) (totalSpent float64, err error)
	// UpgradeTier raises the customer tier, never lowering it.
	UpgradeTier(ctx context.Context, customerID int64, tier domain.LoyaltyTier) error
	ApplyCategoryOrder(ctx context.Context, restaurantID int64, category string, orders int64, revenue float64) error
	ApplyMenuItemOrder(ctx context.Context, itemID int64, quantity int64, revenue float64) error
	// ApplyMenuItemRating folds one rating into the item average.
	ApplyMenuItemRating(ctx context.Context, itemID int64, rating int) error

	GetRestaurantStats(ctx context.Context, restaurantID int64) (*domain.RestaurantStats, error)
	GetCustomerStats(ctx context.Context, customerID int64) (*domain.CustomerStats, error)

	// Replace* overwrite an aggregate with values re-derived from order
	// history. Only the repair job calls these.
	ReplaceRestaurantStats(ctx context.Context, stats *domain.RestaurantStats) error
	ReplaceCustomerStats(ctx context.Context, stats *domain.CustomerStats) error
	ReplaceCategoryStats(ctx context.Context, restaurantID int64, stats []*domain.CategoryStats) error
	ReplaceMenuItemStats(ctx context.Context, items []*domain.MenuItem) error
}

type AnalyticsRepository interface {
	// ApplyOrderCreated locates-or-creates the DAILY bucket for
	// (restaurant, local date) and increments its counters, including the
	// peak-hour slot for the order's placement hour.
	ApplyOrderCreated(ctx context.Context, restaurantID int64, day time.Time, hour int, amount float64, method domain.PaymentMethod) error
	ApplyOrderCompleted(ctx context.Context, restaurantID int64, day time.Time) error
	ApplyOrderCancelled(ctx context.Context, restaurantID int64, day time.Time, refund float64) error
	ApplyRating(ctx context.Context, restaurantID int64, day time.Time, rating int) error
	// GetRange returns the daily buckets with from <= date < to.
	GetRange(ctx context.Context, restaurantID int64, from, to time.Time) ([]*domain.AnalyticsBucket, error)
	ReplaceBuckets(ctx context.Context, restaurantID int64, buckets []*domain.AnalyticsBucket) error
}

type IdempotencyRepository interface {
	// Claim takes the event record, normally seeded pending by the order
	// transaction, and reports whether this caller may apply it. True is
	// returned exactly once per key; applied, failed and in-flight
	// records all return false. A record claimed but never marked
	// applied is picked up by the repair sweep once its grace window
	// passes, so a crash mid-apply can never lose the event.
	Claim(ctx context.Context, key string, orderID int64, event domain.EventType, restaurantID int64) (bool, error)
	// MarkApplied finalizes a claimed record after every aggregate write
	// succeeded.
	MarkApplied(ctx context.Context, key string) error
	// MarkFailed makes the record immediately eligible for repair.
	MarkFailed(ctx context.Context, key string, reason string) error
	// PendingRepairs returns records needing reconciliation: failed ones
	// and those stuck pending past the grace window.
	PendingRepairs(ctx context.Context, limit int) ([]*domain.RepairEntry, error)
	MarkRepaired(ctx context.Context, entryID int64) error
	MarkAttempted(ctx context.Context, entryID int64) error
}
