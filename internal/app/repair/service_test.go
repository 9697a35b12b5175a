package repair

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/mocks"
)

func historyOrder(id, customerID int64, total float64, placed time.Time, status domain.Status) *domain.Order {
	return &domain.Order{
		ID:           id,
		Number:       fmt.Sprintf("ORD_20260301_%06d", id),
		CustomerID:   customerID,
		RestaurantID: 3,
		Type:         domain.OrderTypePickup,
		Status:       status,
		Payment:      domain.Payment{Method: domain.PaymentMethodCard, Status: domain.PaymentCompleted, Amount: total},
		Pricing:      domain.Pricing{Total: total},
		Timing:       domain.Timing{PlacedAt: placed},
		Items: []domain.LineItem{
			{MenuItemID: 11, Category: "mains", UnitPrice: total, Quantity: 1, LineTotal: total},
		},
	}
}

func TestDerive(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []*domain.Order{
		historyOrder(1, 7, 1200, day.Add(12*time.Hour), domain.StatusDelivered),
		historyOrder(2, 7, 900, day.Add(19*time.Hour), domain.StatusDelivered),
		historyOrder(3, 8, 300, day.Add(19*time.Hour+30*time.Minute), domain.StatusDelivered),
	}

	d := Derive(3, orders)

	assert.Equal(t, int64(3), d.Restaurant.TotalOrders)
	assert.Equal(t, 2400.0, d.Restaurant.TotalRevenue)
	assert.InDelta(t, 800.0, d.Restaurant.AverageOrderValue, 1e-9)

	assert.ElementsMatch(t, []int64{7, 8}, d.CustomerIDs)

	require.Len(t, d.Categories, 1)
	assert.Equal(t, int64(3), d.Categories[0].TotalOrders)
	assert.Equal(t, 2400.0, d.Categories[0].TotalRevenue)

	require.Len(t, d.MenuItems, 1)
	assert.Equal(t, int64(3), d.MenuItems[0].TotalOrders)

	require.Len(t, d.Buckets, 1)
	b := d.Buckets[0]
	assert.Equal(t, int64(3), b.OrdersTotal)
	assert.Equal(t, int64(3), b.OrdersCompleted)
	assert.Equal(t, int64(1), b.PeakHours[12])
	assert.Equal(t, int64(2), b.PeakHours[19])
	assert.Equal(t, 2400.0, b.RevenueByMethod["card"])
}

func TestDerive_CancelledOrderReducesNetRevenue(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cancelled := historyOrder(1, 7, 500, day.Add(13*time.Hour), domain.StatusCancelled)
	cancelled.Cancellation = &domain.Cancellation{RefundAmount: 500, RefundStatus: domain.RefundPending}

	d := Derive(3, []*domain.Order{cancelled})

	b := d.Buckets[0]
	assert.Equal(t, int64(1), b.OrdersCancelled)
	assert.Equal(t, 500.0, b.RevenueTotal)
	assert.Zero(t, b.RevenueNet)
}

func TestDerive_RatingsFoldIntoItemsAndBuckets(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := historyOrder(1, 7, 400, day.Add(12*time.Hour), domain.StatusDelivered)
	second := historyOrder(2, 8, 400, day.Add(13*time.Hour), domain.StatusDelivered)
	five, three := 5, 3
	first.Rating = &five
	second.Rating = &three

	d := Derive(3, []*domain.Order{first, second})

	require.Len(t, d.MenuItems, 1)
	assert.Equal(t, int64(2), d.MenuItems[0].RatingCount)
	assert.InDelta(t, 4.0, d.MenuItems[0].AverageRating, 1e-9)
	assert.Equal(t, int64(1), d.Buckets[0].RatingCounts[5])
	assert.Equal(t, int64(1), d.Buckets[0].RatingCounts[3])
}

func TestDerive_SplitsBucketsByDay(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	d := Derive(3, []*domain.Order{
		historyOrder(1, 7, 100, day1, domain.StatusDelivered),
		historyOrder(2, 7, 200, day2, domain.StatusDelivered),
	})

	assert.Len(t, d.Buckets, 2)
}

func TestDeriveCustomer_SpansRestaurants(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	local := historyOrder(1, 7, 100, day.Add(12*time.Hour), domain.StatusDelivered)
	elsewhere := historyOrder(2, 7, 5000, day.Add(20*time.Hour), domain.StatusDelivered)
	elsewhere.RestaurantID = 5

	cust := DeriveCustomer(7, []*domain.Order{local, elsewhere})

	assert.Equal(t, int64(2), cust.TotalOrders)
	assert.Equal(t, 5100.0, cust.TotalSpent, "spend accrues across restaurants")
	assert.Equal(t, int64(510), cust.LoyaltyPoints)
	assert.Equal(t, domain.TierGold, cust.Tier)
	require.NotNil(t, cust.LastOrderDate)
	assert.Equal(t, day.Add(20*time.Hour), *cust.LastOrderDate)
}

func TestDeriveCustomer_EmptyHistory(t *testing.T) {
	cust := DeriveCustomer(7, nil)

	assert.Zero(t, cust.TotalOrders)
	assert.Equal(t, domain.TierBronze, cust.Tier)
	assert.Nil(t, cust.LastOrderDate)
}

func TestRunOnce_RepairsAndMarks(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	statsRepo := new(mocks.MockStatsRepository)
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)

	entries := []*domain.RepairEntry{
		{ID: 1, Key: "5:order_created", OrderID: 5, Event: domain.EventOrderCreated, RestaurantID: 3},
		{ID: 2, Key: "rollup:5:order_created", OrderID: 5, Event: domain.EventOrderCreated, RestaurantID: 3},
	}
	history := []*domain.Order{
		historyOrder(5, 7, 750, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), domain.StatusPending),
	}
	elsewhere := historyOrder(6, 7, 5000, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), domain.StatusDelivered)
	elsewhere.RestaurantID = 5
	customerHistory := []*domain.Order{history[0], elsewhere}

	idem.On("PendingRepairs", mock.Anything, mock.Anything).Return(entries, nil)
	orders.On("ListByRestaurant", mock.Anything, int64(3)).Return(history, nil)
	orders.On("ListByCustomer", mock.Anything, int64(7)).Return(customerHistory, nil)
	statsRepo.On("ReplaceRestaurantStats", mock.Anything, mock.Anything).Return(nil)
	statsRepo.On("ReplaceCustomerStats", mock.Anything, mock.MatchedBy(func(c *domain.CustomerStats) bool {
		return c.CustomerID == 7 && c.TotalSpent == 5750 && c.TotalOrders == 2
	})).Return(nil)
	statsRepo.On("ReplaceCategoryStats", mock.Anything, int64(3), mock.Anything).Return(nil)
	statsRepo.On("ReplaceMenuItemStats", mock.Anything, mock.Anything).Return(nil)
	analyticsRepo.On("ReplaceBuckets", mock.Anything, int64(3), mock.Anything).Return(nil)
	idem.On("MarkRepaired", mock.Anything, int64(1)).Return(nil)
	idem.On("MarkRepaired", mock.Anything, int64(2)).Return(nil)

	svc := NewService(orders, statsRepo, analyticsRepo, idem, logger.Nop{}, time.Minute)
	repaired, err := svc.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, repaired, "one derivation clears every entry of the restaurant")
	orders.AssertNumberOfCalls(t, "ListByRestaurant", 1)
	idem.AssertExpectations(t)
}

func TestRunOnce_FailedRepairRecordsAttempt(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	statsRepo := new(mocks.MockStatsRepository)
	analyticsRepo := new(mocks.MockAnalyticsRepository)
	idem := new(mocks.MockIdempotencyRepository)

	entries := []*domain.RepairEntry{
		{ID: 1, Key: "5:order_created", OrderID: 5, Event: domain.EventOrderCreated, RestaurantID: 3},
	}

	idem.On("PendingRepairs", mock.Anything, mock.Anything).Return(entries, nil)
	orders.On("ListByRestaurant", mock.Anything, int64(3)).
		Return(nil, errors.New("connection refused"))
	idem.On("MarkAttempted", mock.Anything, int64(1)).Return(nil)

	svc := NewService(orders, statsRepo, analyticsRepo, idem, logger.Nop{}, time.Minute)
	repaired, err := svc.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, repaired)
	idem.AssertCalled(t, "MarkAttempted", mock.Anything, int64(1))
	idem.AssertNotCalled(t, "MarkRepaired", mock.Anything, mock.Anything)
}

func TestRunOnce_EmptyQueue(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	idem := new(mocks.MockIdempotencyRepository)

	idem.On("PendingRepairs", mock.Anything, mock.Anything).Return([]*domain.RepairEntry{}, nil)

	svc := NewService(orders, new(mocks.MockStatsRepository), new(mocks.MockAnalyticsRepository), idem, logger.Nop{}, time.Minute)
	repaired, err := svc.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, repaired)
	orders.AssertNotCalled(t, "ListByRestaurant", mock.Anything, mock.Anything)
}
