package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/mocks"
)

func rollupOrder() *domain.Order {
	return &domain.Order{
		ID:           42,
		Number:       "ORD_20260301_000042",
		CustomerID:   7,
		RestaurantID: 3,
		Payment:      domain.Payment{Method: domain.PaymentMethodCard},
		Pricing:      domain.Pricing{Total: 602.25},
		Timing:       domain.Timing{PlacedAt: time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)},
	}
}

func TestWriter_ApplyOrderCreated(t *testing.T) {
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := rollupOrder()

	idem.On("Claim", mock.Anything, "rollup:42:order_created", int64(42), domain.EventOrderCreated, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "rollup:42:order_created").Return(nil)
	analyticsRepo.On("ApplyOrderCreated", mock.Anything, int64(3), order.Timing.PlacedAt,
		19, 602.25, domain.PaymentMethodCard).Return(nil)

	writer := NewWriter(analyticsRepo, idem, logger.Nop{})
	err := writer.Apply(context.Background(), order, domain.EventOrderCreated)

	require.NoError(t, err)
	analyticsRepo.AssertExpectations(t)
	idem.AssertExpectations(t)
}

func TestWriter_DuplicateRollupIsNoOp(t *testing.T) {
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)

	idem.On("Claim", mock.Anything, "rollup:42:order_created", int64(42), domain.EventOrderCreated, int64(3)).
		Return(false, nil)

	writer := NewWriter(analyticsRepo, idem, logger.Nop{})
	err := writer.Apply(context.Background(), rollupOrder(), domain.EventOrderCreated)

	require.NoError(t, err)
	analyticsRepo.AssertNotCalled(t, "ApplyOrderCreated",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWriter_CancelledUsesRefundAmount(t *testing.T) {
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := rollupOrder()
	order.Cancellation = &domain.Cancellation{RefundAmount: 602.25, RefundStatus: domain.RefundPending}

	idem.On("Claim", mock.Anything, "rollup:42:order_cancelled", int64(42), domain.EventOrderCancelled, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "rollup:42:order_cancelled").Return(nil)
	analyticsRepo.On("ApplyOrderCancelled", mock.Anything, int64(3), order.Timing.PlacedAt, 602.25).Return(nil)

	writer := NewWriter(analyticsRepo, idem, logger.Nop{})
	err := writer.Apply(context.Background(), order, domain.EventOrderCancelled)

	require.NoError(t, err)
	analyticsRepo.AssertExpectations(t)
}

func TestWriter_FailureDefersToRepairQueue(t *testing.T) {
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := rollupOrder()

	idem.On("Claim", mock.Anything, "rollup:42:order_delivered", int64(42), domain.EventOrderDelivered, int64(3)).
		Return(true, nil)
	analyticsRepo.On("ApplyOrderCompleted", mock.Anything, int64(3), order.Timing.PlacedAt).
		Return(errors.New("deadlock detected"))
	idem.On("MarkFailed", mock.Anything, "rollup:42:order_delivered", mock.Anything).Return(nil)

	writer := NewWriter(analyticsRepo, idem, logger.Nop{})
	err := writer.Apply(context.Background(), order, domain.EventOrderDelivered)

	var aggErr *domain.AggregateUpdateError
	require.True(t, errors.As(err, &aggErr))
	idem.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything)
	idem.AssertExpectations(t)
}

func TestSummarize(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	buckets := []*domain.AnalyticsBucket{
		{
			RestaurantID: 3, Date: day1,
			OrdersTotal: 10, OrdersCompleted: 8, OrdersCancelled: 1,
			RevenueTotal: 5000, RevenueNet: 4800,
			PeakHours:       map[int]int64{12: 4, 19: 6},
			RevenueByMethod: map[string]float64{"card": 3000, "cash": 2000},
			RatingCounts:    map[int]int64{5: 3, 4: 1},
		},
		{
			RestaurantID: 3, Date: day2,
			OrdersTotal: 5, OrdersCompleted: 5,
			RevenueTotal: 2500, RevenueNet: 2500,
			PeakHours:       map[int]int64{19: 5},
			RevenueByMethod: map[string]float64{"card": 2500},
			RatingCounts:    map[int]int64{5: 2},
		},
	}

	s := Summarize(3, domain.PeriodWeekly, buckets)

	assert.Equal(t, int64(15), s.OrdersTotal)
	assert.Equal(t, int64(13), s.OrdersCompleted)
	assert.Equal(t, int64(1), s.OrdersCancelled)
	assert.Equal(t, 7500.0, s.RevenueTotal)
	assert.Equal(t, 7300.0, s.RevenueNet)
	assert.Equal(t, 500.0, s.AverageOrderValue)
	assert.Equal(t, int64(11), s.PeakHours[19])
	assert.Equal(t, 5500.0, s.RevenueByMethod["card"])
	assert.Equal(t, int64(5), s.RatingCounts[5])
}

func TestSummarize_EmptyRange(t *testing.T) {
	s := Summarize(3, domain.PeriodDaily, nil)

	assert.Zero(t, s.OrdersTotal)
	assert.Zero(t, s.AverageOrderValue)
	assert.NotNil(t, s.PeakHours)
}
