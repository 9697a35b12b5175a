package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// PointsPerCurrency is one loyalty point per 10 currency units spent.
const PointsPerCurrency = 10

// IncrementalMean folds value into an average that already covers
// newCount-1 samples. The delta form is numerically stable over long
// series where (oldAvg*oldCount + value) / newCount is not.
func IncrementalMean(oldAvg float64, newCount int64, value float64) float64 {
	if newCount <= 0 {
		return 0
	}
	return oldAvg + (value-oldAvg)/float64(newCount)
}

// LoyaltyPoints converts an order total into earned points.
func LoyaltyPoints(total float64) int64 {
	return int64(math.Floor(total / PointsPerCurrency))
}

// Updater applies a qualifying order event to the restaurant, menu
// item, customer and category aggregates. Each (order, event) pair is
// applied at most once; a duplicate delivery is a no-op.
type Updater struct {
	stats  interfaces.StatsRepository
	idem   interfaces.IdempotencyRepository
	logger logger.Logger
}

func NewUpdater(stats interfaces.StatsRepository, idem interfaces.IdempotencyRepository, logger logger.Logger) *Updater {
	return &Updater{
		stats:  stats,
		idem:   idem,
		logger: logger,
	}
}

// Apply dispatches one event. The event record was seeded pending by
// the order transaction; claiming it wins the right to apply, and the
// record is marked applied only after every write succeeded. The
// returned error is always a *domain.AggregateUpdateError; by the time
// it surfaces the key is already flagged for the repair pass, so
// callers only log it.
func (u *Updater) Apply(ctx context.Context, order *domain.Order, event domain.EventType) error {
	key := domain.EventKey(order.ID, event)

	claimed, err := u.idem.Claim(ctx, key, order.ID, event, order.RestaurantID)
	if err != nil {
		return u.deferRepair(ctx, order, key, fmt.Errorf("failed to claim event key: %w", err))
	}
	if !claimed {
		u.logger.Debug("stats_duplicate_event", "Event already applied, skipping", order.Number, map[string]interface{}{
			"event": string(event),
		})
		return nil
	}

	if err := u.applyEvent(ctx, order, event); err != nil {
		return u.deferRepair(ctx, order, key, err)
	}

	if err := u.idem.MarkApplied(ctx, key); err != nil {
		// The writes landed; the unfinalized record is swept into a
		// full re-derivation later.
		u.logger.Error("stats_mark_applied_failed", "Failed to finalize event record", order.Number, map[string]interface{}{
			"key": key,
		}, err)
	}
	return nil
}

func (u *Updater) applyEvent(ctx context.Context, order *domain.Order, event domain.EventType) error {
	switch event {
	case domain.EventOrderCreated:
		return u.applyCreated(ctx, order)
	case domain.EventRatingRecorded:
		return u.applyRating(ctx, order)
	case domain.EventOrderDelivered, domain.EventOrderCancelled:
		// Counted at creation; delivery and cancellation only move the
		// analytics rollups.
		return nil
	default:
		return fmt.Errorf("unknown event type %q", event)
	}
}

func (u *Updater) applyCreated(ctx context.Context, order *domain.Order) error {
	total := order.Pricing.Total

	if err := u.stats.ApplyRestaurantOrder(ctx, order.RestaurantID, total); err != nil {
		return fmt.Errorf("restaurant stats: %w", err)
	}

	totalSpent, err := u.stats.ApplyCustomerOrder(ctx, order.CustomerID, total, LoyaltyPoints(total), order.Timing.PlacedAt)
	if err != nil {
		return fmt.Errorf("customer stats: %w", err)
	}
	if err := u.stats.UpgradeTier(ctx, order.CustomerID, domain.TierFor(totalSpent)); err != nil {
		return fmt.Errorf("customer tier: %w", err)
	}

	for _, line := range order.Items {
		revenue := lineRevenue(line)
		if err := u.stats.ApplyMenuItemOrder(ctx, line.MenuItemID, int64(line.Quantity), revenue); err != nil {
			return fmt.Errorf("menu item stats: %w", err)
		}
		if err := u.stats.ApplyCategoryOrder(ctx, order.RestaurantID, line.Category, 1, revenue); err != nil {
			return fmt.Errorf("category stats: %w", err)
		}
	}
	return nil
}

func (u *Updater) applyRating(ctx context.Context, order *domain.Order) error {
	if order.Rating == nil {
		return fmt.Errorf("order %s has no rating", order.Number)
	}
	for _, line := range order.Items {
		if err := u.stats.ApplyMenuItemRating(ctx, line.MenuItemID, *order.Rating); err != nil {
			return fmt.Errorf("menu item rating: %w", err)
		}
	}
	return nil
}

// deferRepair flags the event record for the repair job and downgrades
// the error to a non-fatal AggregateUpdateError.
func (u *Updater) deferRepair(ctx context.Context, order *domain.Order, key string, cause error) error {
	if err := u.idem.MarkFailed(ctx, key, cause.Error()); err != nil {
		u.logger.Error("stats_repair_enqueue_failed", "Failed to queue stats repair entry", order.Number, map[string]interface{}{
			"key": key,
		}, err)
	}
	return &domain.AggregateUpdateError{Key: key, Err: cause}
}

func lineRevenue(line domain.LineItem) float64 {
	if line.LineTotal > 0 {
		return line.LineTotal
	}
	unit := line.UnitPrice
	for _, a := range line.AddOns {
		unit += a.Price
	}
	return unit * float64(line.Quantity)
}
