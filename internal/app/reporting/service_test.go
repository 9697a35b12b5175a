package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/mocks"
)

func TestService_GetOrderStatus(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	buckets := new(mocks.MockAnalyticsRepository)

	updated := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	orders.On("FindByNumber", mock.Anything, "ORD_20260301_000001").Return(&domain.Order{
		ID:        1,
		Number:    "ORD_20260301_000001",
		Status:    domain.StatusPreparing,
		Pricing:   domain.Pricing{Total: 602.25},
		UpdatedAt: updated,
	}, nil)

	svc := NewService(orders, buckets, logger.Nop{})
	resp, err := svc.GetOrderStatus(context.Background(), "ORD_20260301_000001")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, resp.CurrentStatus)
	assert.Equal(t, 602.25, resp.Pricing.Total)
	assert.Equal(t, updated, resp.UpdatedAt)
}

func TestService_GetOrderStatus_NotFound(t *testing.T) {
	orders := new(mocks.MockOrderRepository)

	orders.On("FindByNumber", mock.Anything, "ORD_20260301_999999").
		Return(nil, domain.ErrOrderNotFound)

	svc := NewService(orders, new(mocks.MockAnalyticsRepository), logger.Nop{})
	_, err := svc.GetOrderStatus(context.Background(), "ORD_20260301_999999")

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestService_GetOrderHistory(t *testing.T) {
	orders := new(mocks.MockOrderRepository)

	orders.On("FindByNumber", mock.Anything, "ORD_20260301_000001").
		Return(&domain.Order{ID: 1, Number: "ORD_20260301_000001"}, nil)
	orders.On("GetStatusHistory", mock.Anything, int64(1)).Return([]*domain.StatusLog{
		{OrderID: 1, Status: domain.StatusPending, ChangedBy: "intake"},
		{OrderID: 1, Status: domain.StatusAccepted, ChangedBy: "operator"},
	}, nil)

	svc := NewService(orders, new(mocks.MockAnalyticsRepository), logger.Nop{})
	logs, err := svc.GetOrderHistory(context.Background(), "ORD_20260301_000001")

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.StatusPending, logs[0].Status)
}

func TestService_GetAnalytics_WeeklyRange(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	buckets := new(mocks.MockAnalyticsRepository)

	// Wednesday; the surrounding Monday-start week is Mar 2 - Mar 9.
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	buckets.On("GetRange", mock.Anything, int64(3), from, to).Return([]*domain.AnalyticsBucket{
		{RestaurantID: 3, Date: from, OrdersTotal: 4, RevenueTotal: 2000, RevenueNet: 2000},
		{RestaurantID: 3, Date: from.AddDate(0, 0, 1), OrdersTotal: 6, RevenueTotal: 2500, RevenueNet: 2400},
	}, nil)

	svc := NewService(orders, buckets, logger.Nop{})
	summary, err := svc.GetAnalytics(context.Background(), 3, domain.PeriodWeekly, day)

	require.NoError(t, err)
	assert.Equal(t, from, summary.From)
	assert.Equal(t, to, summary.To)
	assert.Equal(t, int64(10), summary.OrdersTotal)
	assert.Equal(t, 4500.0, summary.RevenueTotal)
	assert.Equal(t, 450.0, summary.AverageOrderValue)
	buckets.AssertExpectations(t)
}

func TestService_GetAnalytics_InvalidPeriod(t *testing.T) {
	svc := NewService(new(mocks.MockOrderRepository), new(mocks.MockAnalyticsRepository), logger.Nop{})

	_, err := svc.GetAnalytics(context.Background(), 3, domain.Period("quarterly"), time.Now())

	assert.Error(t, err)
}
