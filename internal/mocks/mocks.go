package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order, events ...domain.EventType) error {
	args := m.Called(ctx, order, events)
	return args.Error(0)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockOrderRepository) LogStatus(ctx context.Context, orderID int64, status domain.Status, changedBy string) error {
	args := m.Called(ctx, orderID, status, changedBy)
	return args.Error(0)
}

func (m *MockOrderRepository) GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StatusLog), args.Error(1)
}

func (m *MockOrderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]*domain.Order, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MenuItem), args.Error(1)
}

func (m *MockCatalogRepository) EvictMenuItem(ctx context.Context, itemID int64) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) ApplyRestaurantOrder(ctx context.Context, restaurantID int64, revenue float64) error {
	args := m.Called(ctx, restaurantID, revenue)
	return args.Error(0)
}

func (m *MockStatsRepository) ApplyCustomerOrder(ctx context.Context, customerID int64, amount float64, points int64, orderDate time.Time) (float64, error) {
	args := m.Called(ctx, customerID, amount, points, orderDate)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStatsRepository) UpgradeTier(ctx context.Context, customerID int64, tier domain.LoyaltyTier) error {
	args := m.Called(ctx, customerID, tier)
	return args.Error(0)
}

func (m *MockStatsRepository) ApplyCategoryOrder(ctx context.Context, restaurantID int64, category string, orders int64, revenue float64) error {
	args := m.Called(ctx, restaurantID, category, orders, revenue)
	return args.Error(0)
}

func (m *MockStatsRepository) ApplyMenuItemOrder(ctx context.Context, itemID int64, quantity int64, revenue float64) error {
	args := m.Called(ctx, itemID, quantity, revenue)
	return args.Error(0)
}

func (m *MockStatsRepository) ApplyMenuItemRating(ctx context.Context, itemID int64, rating int) error {
	args := m.Called(ctx, itemID, rating)
	return args.Error(0)
}

func (m *MockStatsRepository) GetRestaurantStats(ctx context.Context, restaurantID int64) (*domain.RestaurantStats, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RestaurantStats), args.Error(1)
}

func (m *MockStatsRepository) GetCustomerStats(ctx context.Context, customerID int64) (*domain.CustomerStats, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerStats), args.Error(1)
}

func (m *MockStatsRepository) ReplaceRestaurantStats(ctx context.Context, stats *domain.RestaurantStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsRepository) ReplaceCustomerStats(ctx context.Context, stats *domain.CustomerStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsRepository) ReplaceCategoryStats(ctx context.Context, restaurantID int64, stats []*domain.CategoryStats) error {
	args := m.Called(ctx, restaurantID, stats)
	return args.Error(0)
}

func (m *MockStatsRepository) ReplaceMenuItemStats(ctx context.Context, items []*domain.MenuItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) ApplyOrderCreated(ctx context.Context, restaurantID int64, day time.Time, hour int, amount float64, method domain.PaymentMethod) error {
	args := m.Called(ctx, restaurantID, day, hour, amount, method)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) ApplyOrderCompleted(ctx context.Context, restaurantID int64, day time.Time) error {
	args := m.Called(ctx, restaurantID, day)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) ApplyOrderCancelled(ctx context.Context, restaurantID int64, day time.Time, refund float64) error {
	args := m.Called(ctx, restaurantID, day, refund)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) ApplyRating(ctx context.Context, restaurantID int64, day time.Time, rating int) error {
	args := m.Called(ctx, restaurantID, day, rating)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) GetRange(ctx context.Context, restaurantID int64, from, to time.Time) ([]*domain.AnalyticsBucket, error) {
	args := m.Called(ctx, restaurantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnalyticsBucket), args.Error(1)
}

func (m *MockAnalyticsRepository) ReplaceBuckets(ctx context.Context, restaurantID int64, buckets []*domain.AnalyticsBucket) error {
	args := m.Called(ctx, restaurantID, buckets)
	return args.Error(0)
}

type MockIdempotencyRepository struct {
	mock.Mock
}

func (m *MockIdempotencyRepository) Claim(ctx context.Context, key string, orderID int64, event domain.EventType, restaurantID int64) (bool, error) {
	args := m.Called(ctx, key, orderID, event, restaurantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyRepository) MarkApplied(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) MarkFailed(ctx context.Context, key string, reason string) error {
	args := m.Called(ctx, key, reason)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) PendingRepairs(ctx context.Context, limit int) ([]*domain.RepairEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RepairEntry), args.Error(1)
}

func (m *MockIdempotencyRepository) MarkRepaired(ctx context.Context, entryID int64) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) MarkAttempted(ctx context.Context, entryID int64) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, msg interfaces.OrderEventMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockPublisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockEventApplier struct {
	mock.Mock
}

func (m *MockEventApplier) Apply(ctx context.Context, order *domain.Order, event domain.EventType) error {
	args := m.Called(ctx, order, event)
	return args.Error(0)
}
