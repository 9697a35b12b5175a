package stats

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

func TestIncrementalMean(t *testing.T) {
	// Folding values one at a time must match the plain mean.
	values := []float64{120, 340.5, 89.99, 1200, 15}

	var avg float64
	var sum float64
	for i, v := range values {
		avg = IncrementalMean(avg, int64(i+1), v)
		sum += v
	}

	assert.InDelta(t, sum/float64(len(values)), avg, 1e-9)
}

func TestIncrementalMean_ZeroCount(t *testing.T) {
	assert.Zero(t, IncrementalMean(100, 0, 50))
}

func TestLoyaltyPoints(t *testing.T) {
	assert.Equal(t, int64(60), LoyaltyPoints(602.25))
	assert.Equal(t, int64(0), LoyaltyPoints(9.99))
	assert.Equal(t, int64(1), LoyaltyPoints(10))
	assert.Equal(t, int64(0), LoyaltyPoints(0))
}

func statsOrder() *domain.Order {
	return &domain.Order{
		ID:           42,
		Number:       "ORD_20260301_000042",
		CustomerID:   7,
		RestaurantID: 3,
		Items: []domain.LineItem{
			{MenuItemID: 11, Category: "mains", UnitPrice: 250, Quantity: 2, LineTotal: 500},
			{MenuItemID: 12, Category: "drinks", UnitPrice: 45, Quantity: 1, LineTotal: 45},
		},
		Pricing: domain.Pricing{Subtotal: 545, Tax: 27.25, DeliveryFee: 30, Total: 602.25},
		Timing:  domain.Timing{PlacedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestUpdater_ApplyCreated(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := statsOrder()

	idem.On("Claim", mock.Anything, "42:order_created", int64(42), domain.EventOrderCreated, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "42:order_created").Return(nil)
	statsRepo.On("ApplyRestaurantOrder", mock.Anything, int64(3), 602.25).Return(nil)
	statsRepo.On("ApplyCustomerOrder", mock.Anything, int64(7), 602.25, int64(60), order.Timing.PlacedAt).
		Return(2100.0, nil)
	statsRepo.On("UpgradeTier", mock.Anything, int64(7), domain.TierSilver).Return(nil)
	statsRepo.On("ApplyMenuItemOrder", mock.Anything, int64(11), int64(2), 500.0).Return(nil)
	statsRepo.On("ApplyCategoryOrder", mock.Anything, int64(3), "mains", int64(1), 500.0).Return(nil)
	statsRepo.On("ApplyMenuItemOrder", mock.Anything, int64(12), int64(1), 45.0).Return(nil)
	statsRepo.On("ApplyCategoryOrder", mock.Anything, int64(3), "drinks", int64(1), 45.0).Return(nil)

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), order, domain.EventOrderCreated)

	require.NoError(t, err)
	statsRepo.AssertExpectations(t)
	idem.AssertExpectations(t)
}

func TestUpdater_DuplicateEventIsNoOp(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)

	idem.On("Claim", mock.Anything, "42:order_created", int64(42), domain.EventOrderCreated, int64(3)).
		Return(false, nil)

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), statsOrder(), domain.EventOrderCreated)

	require.NoError(t, err)
	statsRepo.AssertNotCalled(t, "ApplyRestaurantOrder", mock.Anything, mock.Anything, mock.Anything)
	idem.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything)
	idem.AssertExpectations(t)
}

func TestUpdater_FailureDefersToRepairQueue(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := statsOrder()

	idem.On("Claim", mock.Anything, "42:order_created", int64(42), domain.EventOrderCreated, int64(3)).
		Return(true, nil)
	statsRepo.On("ApplyRestaurantOrder", mock.Anything, int64(3), 602.25).
		Return(errors.New("connection reset"))
	idem.On("MarkFailed", mock.Anything, "42:order_created", mock.Anything).Return(nil)

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), order, domain.EventOrderCreated)

	var aggErr *domain.AggregateUpdateError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, "42:order_created", aggErr.Key)
	idem.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything)
	idem.AssertExpectations(t)
}

func TestUpdater_MarkAppliedFailureIsNotFatal(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := statsOrder()

	idem.On("Claim", mock.Anything, "42:order_delivered", int64(42), domain.EventOrderDelivered, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "42:order_delivered").
		Return(errors.New("connection reset"))

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), order, domain.EventOrderDelivered)

	// The writes landed; the unfinalized record is left for the sweep.
	require.NoError(t, err)
	idem.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdater_DeliveredTouchesNoStats(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)

	idem.On("Claim", mock.Anything, "42:order_delivered", int64(42), domain.EventOrderDelivered, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "42:order_delivered").Return(nil)

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), statsOrder(), domain.EventOrderDelivered)

	require.NoError(t, err)
	statsRepo.AssertNotCalled(t, "ApplyRestaurantOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdater_ApplyRating(t *testing.T) {
	statsRepo := new(mocks.MockStatsRepository)
	idem := new(mocks.MockIdempotencyRepository)
	order := statsOrder()
	rating := 5
	order.Rating = &rating

	idem.On("Claim", mock.Anything, "42:rating_recorded", int64(42), domain.EventRatingRecorded, int64(3)).
		Return(true, nil)
	idem.On("MarkApplied", mock.Anything, "42:rating_recorded").Return(nil)
	statsRepo.On("ApplyMenuItemRating", mock.Anything, int64(11), 5).Return(nil)
	statsRepo.On("ApplyMenuItemRating", mock.Anything, int64(12), 5).Return(nil)

	updater := NewUpdater(statsRepo, idem, logger.Nop{})
	err := updater.Apply(context.Background(), order, domain.EventRatingRecorded)

	require.NoError(t, err)
	statsRepo.AssertExpectations(t)
}
