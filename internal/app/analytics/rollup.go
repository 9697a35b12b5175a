package analytics

import (
	"context"
	"fmt"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// Writer maintains the per-(restaurant, local date) DAILY buckets.
// Only daily buckets are written; coarser periods are summed on read so
// one order event never fans out across multiple buckets.
type Writer struct {
	analytics interfaces.AnalyticsRepository
	idem      interfaces.IdempotencyRepository
	logger    logger.Logger
}

func NewWriter(analytics interfaces.AnalyticsRepository, idem interfaces.IdempotencyRepository, logger logger.Logger) *Writer {
	return &Writer{
		analytics: analytics,
		idem:      idem,
		logger:    logger,
	}
}

// Apply rolls one event into the daily bucket, at most once per
// (order, event). The rollup record is seeded pending by the order
// transaction and marked applied only after the bucket write succeeded;
// failures are flagged for repair and downgraded, never failing the
// originating transition.
func (w *Writer) Apply(ctx context.Context, order *domain.Order, event domain.EventType) error {
	key := domain.RollupKey(order.ID, event)

	claimed, err := w.idem.Claim(ctx, key, order.ID, event, order.RestaurantID)
	if err != nil {
		return w.deferRepair(ctx, order, key, fmt.Errorf("failed to claim rollup key: %w", err))
	}
	if !claimed {
		w.logger.Debug("rollup_duplicate_event", "Rollup already applied, skipping", order.Number, map[string]interface{}{
			"event": string(event),
		})
		return nil
	}

	if err := w.applyEvent(ctx, order, event); err != nil {
		return w.deferRepair(ctx, order, key, err)
	}

	if err := w.idem.MarkApplied(ctx, key); err != nil {
		w.logger.Error("rollup_mark_applied_failed", "Failed to finalize rollup record", order.Number, map[string]interface{}{
			"key": key,
		}, err)
	}
	return nil
}

func (w *Writer) applyEvent(ctx context.Context, order *domain.Order, event domain.EventType) error {
	placed := order.Timing.PlacedAt
	day := placed

	switch event {
	case domain.EventOrderCreated:
		return w.analytics.ApplyOrderCreated(ctx, order.RestaurantID, day, placed.Hour(), order.Pricing.Total, order.Payment.Method)
	case domain.EventOrderDelivered:
		return w.analytics.ApplyOrderCompleted(ctx, order.RestaurantID, day)
	case domain.EventOrderCancelled:
		refund := 0.0
		if order.Cancellation != nil {
			refund = order.Cancellation.RefundAmount
		}
		return w.analytics.ApplyOrderCancelled(ctx, order.RestaurantID, day, refund)
	case domain.EventRatingRecorded:
		if order.Rating == nil {
			return fmt.Errorf("order %s has no rating", order.Number)
		}
		return w.analytics.ApplyRating(ctx, order.RestaurantID, day, *order.Rating)
	default:
		return fmt.Errorf("unknown event type %q", event)
	}
}

func (w *Writer) deferRepair(ctx context.Context, order *domain.Order, key string, cause error) error {
	if err := w.idem.MarkFailed(ctx, key, cause.Error()); err != nil {
		w.logger.Error("rollup_repair_enqueue_failed", "Failed to queue rollup repair entry", order.Number, map[string]interface{}{
			"key": key,
		}, err)
	}
	return &domain.AggregateUpdateError{Key: key, Err: cause}
}

// Summarize folds daily buckets into the requested period view.
func Summarize(restaurantID int64, period domain.Period, buckets []*domain.AnalyticsBucket) *domain.AnalyticsSummary {
	s := &domain.AnalyticsSummary{
		RestaurantID:    restaurantID,
		Period:          period,
		PeakHours:       make(map[int]int64),
		RevenueByMethod: make(map[string]float64),
		RatingCounts:    make(map[int]int64),
	}

	for _, b := range buckets {
		s.OrdersTotal += b.OrdersTotal
		s.OrdersCompleted += b.OrdersCompleted
		s.OrdersCancelled += b.OrdersCancelled
		s.RevenueTotal += b.RevenueTotal
		s.RevenueNet += b.RevenueNet
		for h, n := range b.PeakHours {
			s.PeakHours[h] += n
		}
		for m, v := range b.RevenueByMethod {
			s.RevenueByMethod[m] += v
		}
		for r, n := range b.RatingCounts {
			s.RatingCounts[r] += n
		}
	}
	if s.OrdersTotal > 0 {
		s.AverageOrderValue = s.RevenueTotal / float64(s.OrdersTotal)
	}
	return s
}
