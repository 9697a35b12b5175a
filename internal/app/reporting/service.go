package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/app/analytics"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// Service is the read side: order tracking and analytics summaries.
type Service struct {
	orders  interfaces.OrderRepository
	buckets interfaces.AnalyticsRepository
	logger  logger.Logger
}

func NewService(orders interfaces.OrderRepository, buckets interfaces.AnalyticsRepository, logger logger.Logger) *Service {
	return &Service{
		orders:  orders,
		buckets: buckets,
		logger:  logger,
	}
}

func (s *Service) GetOrderStatus(ctx context.Context, orderNumber string) (*interfaces.OrderStatusResponse, error) {
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	return &interfaces.OrderStatusResponse{
		OrderNumber:   order.Number,
		CurrentStatus: order.Status,
		UpdatedAt:     order.UpdatedAt,
		Pricing:       order.Pricing,
		Timing:        order.Timing,
	}, nil
}

func (s *Service) GetOrderHistory(ctx context.Context, orderNumber string) ([]*domain.StatusLog, error) {
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.orders.GetStatusHistory(ctx, order.ID)
}

// GetAnalytics sums the daily buckets covering the period that contains
// day. Coarser periods are never stored, only derived here.
func (s *Service) GetAnalytics(ctx context.Context, restaurantID int64, period domain.Period, day time.Time) (*domain.AnalyticsSummary, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid period %q", period)
	}

	from, to := period.Range(day)
	buckets, err := s.buckets.GetRange(ctx, restaurantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics buckets: %w", err)
	}

	summary := analytics.Summarize(restaurantID, period, buckets)
	summary.From = from
	summary.To = to
	return summary, nil
}
