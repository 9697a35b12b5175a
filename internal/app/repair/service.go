package repair

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/app/stats"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

const defaultBatchSize = 50

// Service is the scheduled repair pass: whenever an event record shows
// a failed stats or rollup write, or one left pending by a crash, it
// re-derives every aggregate of the affected restaurant from the
// immutable order history. Orders are the single system of record, so
// replacing the derived counters wholesale is always safe. Customer
// aggregates span restaurants and are rebuilt from the customer's full
// history, never from a single restaurant's slice of it.
type Service struct {
	orders    interfaces.OrderRepository
	stats     interfaces.StatsRepository
	analytics interfaces.AnalyticsRepository
	idem      interfaces.IdempotencyRepository
	logger    logger.Logger
	interval  time.Duration
	batchSize int
	stop      chan struct{}
	done      chan struct{}
}

func NewService(
	orders interfaces.OrderRepository,
	statsRepo interfaces.StatsRepository,
	analyticsRepo interfaces.AnalyticsRepository,
	idem interfaces.IdempotencyRepository,
	logger logger.Logger,
	interval time.Duration,
) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		orders:    orders,
		stats:     statsRepo,
		analytics: analyticsRepo,
		idem:      idem,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("repair_started", "Repair worker started", "", map[string]interface{}{
		"interval": s.interval.String(),
	})

	go s.loop(ctx)
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			repaired, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("repair_pass_failed", "Repair pass failed", "", nil, err)
				continue
			}
			if repaired > 0 {
				s.logger.Info("repair_pass_done", "Repair pass completed", "", map[string]interface{}{
					"repaired": repaired,
				})
			}
		}
	}
}

func (s *Service) Shutdown(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce drains one batch of pending repair entries. Entries for the
// same restaurant are coalesced: one re-derivation fixes all of them.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	entries, err := s.idem.PendingRepairs(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load repair queue: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	byRestaurant := make(map[int64][]*domain.RepairEntry)
	for _, e := range entries {
		byRestaurant[e.RestaurantID] = append(byRestaurant[e.RestaurantID], e)
	}

	repaired := 0
	for restaurantID, group := range byRestaurant {
		if err := s.repairRestaurant(ctx, restaurantID); err != nil {
			s.logger.Error("repair_failed", "Failed to re-derive aggregates", "", map[string]interface{}{
				"restaurant_id": restaurantID,
			}, err)
			for _, e := range group {
				if markErr := s.idem.MarkAttempted(ctx, e.ID); markErr != nil {
					s.logger.Error("repair_mark_failed", "Failed to record repair attempt", e.Key, nil, markErr)
				}
			}
			continue
		}
		for _, e := range group {
			if err := s.idem.MarkRepaired(ctx, e.ID); err != nil {
				s.logger.Error("repair_mark_failed", "Failed to mark entry repaired", e.Key, nil, err)
				continue
			}
			repaired++
		}
	}
	return repaired, nil
}

// repairRestaurant rebuilds the four aggregate families and the daily
// analytics buckets of one restaurant from its order history.
func (s *Service) repairRestaurant(ctx context.Context, restaurantID int64) error {
	orders, err := s.orders.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}

	derived := Derive(restaurantID, orders)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.stats.ReplaceRestaurantStats(gctx, derived.Restaurant)
	})
	g.Go(func() error {
		return s.repairCustomers(gctx, derived.CustomerIDs)
	})
	g.Go(func() error {
		if err := s.stats.ReplaceCategoryStats(gctx, restaurantID, derived.Categories); err != nil {
			return err
		}
		return s.stats.ReplaceMenuItemStats(gctx, derived.MenuItems)
	})
	g.Go(func() error {
		return s.analytics.ReplaceBuckets(gctx, restaurantID, derived.Buckets)
	})
	return g.Wait()
}

// repairCustomers rebuilds each affected customer from their complete
// order history. A customer's spend, points and tier accrue across
// every restaurant they order from, so the restaurant-scoped history
// that triggered the repair is not enough to rebuild them.
func (s *Service) repairCustomers(ctx context.Context, customerIDs []int64) error {
	for _, customerID := range customerIDs {
		history, err := s.orders.ListByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("failed to load customer history: %w", err)
		}
		if err := s.stats.ReplaceCustomerStats(ctx, DeriveCustomer(customerID, history)); err != nil {
			return err
		}
	}
	return nil
}

// Derived holds restaurant-scoped aggregate values recomputed from
// scratch, plus the customers whose cross-restaurant aggregates need a
// separate rebuild.
type Derived struct {
	Restaurant  *domain.RestaurantStats
	CustomerIDs []int64
	Categories  []*domain.CategoryStats
	MenuItems   []*domain.MenuItem
	Buckets     []*domain.AnalyticsBucket
}

// Derive replays the order history through the same pure formulas the
// live updaters use. Orders must be oldest first so moving averages
// replay in event order.
func Derive(restaurantID int64, orders []*domain.Order) *Derived {
	rest := &domain.RestaurantStats{RestaurantID: restaurantID}
	customerIDs := make(map[int64]struct{})
	categories := make(map[string]*domain.CategoryStats)
	menuItems := make(map[int64]*domain.MenuItem)
	buckets := make(map[string]*domain.AnalyticsBucket)

	for _, order := range orders {
		total := order.Pricing.Total

		rest.TotalOrders++
		rest.TotalRevenue += total
		rest.AverageOrderValue = stats.IncrementalMean(rest.AverageOrderValue, rest.TotalOrders, total)

		customerIDs[order.CustomerID] = struct{}{}

		for _, line := range order.Items {
			revenue := line.LineTotal

			cat := categories[line.Category]
			if cat == nil {
				cat = &domain.CategoryStats{RestaurantID: restaurantID, Category: line.Category}
				categories[line.Category] = cat
			}
			cat.TotalOrders++
			cat.TotalRevenue += revenue

			mi := menuItems[line.MenuItemID]
			if mi == nil {
				mi = &domain.MenuItem{ID: line.MenuItemID, RestaurantID: restaurantID}
				menuItems[line.MenuItemID] = mi
			}
			mi.TotalOrders += int64(line.Quantity)
			mi.TotalRevenue += revenue
			if order.Rating != nil {
				mi.RatingCount++
				mi.AverageRating = stats.IncrementalMean(mi.AverageRating, mi.RatingCount, float64(*order.Rating))
			}
		}

		deriveBucket(buckets, order)
	}

	d := &Derived{Restaurant: rest}
	for id := range customerIDs {
		d.CustomerIDs = append(d.CustomerIDs, id)
	}
	for _, c := range categories {
		d.Categories = append(d.Categories, c)
	}
	for _, m := range menuItems {
		d.MenuItems = append(d.MenuItems, m)
	}
	for _, b := range buckets {
		d.Buckets = append(d.Buckets, b)
	}
	return d
}

// DeriveCustomer folds a customer's complete order history, across all
// restaurants, into their lifetime aggregates. Orders must be oldest
// first so the tier upgrade replays in event order.
func DeriveCustomer(customerID int64, orders []*domain.Order) *domain.CustomerStats {
	cust := &domain.CustomerStats{CustomerID: customerID, Tier: domain.TierBronze}
	for _, order := range orders {
		total := order.Pricing.Total
		cust.TotalOrders++
		cust.TotalSpent += total
		cust.LoyaltyPoints += stats.LoyaltyPoints(total)
		placed := order.Timing.PlacedAt
		cust.LastOrderDate = &placed
		if tier := domain.TierFor(cust.TotalSpent); tier.Outranks(cust.Tier) {
			cust.Tier = tier
		}
	}
	return cust
}

func deriveBucket(buckets map[string]*domain.AnalyticsBucket, order *domain.Order) {
	placed := order.Timing.PlacedAt
	day := time.Date(placed.Year(), placed.Month(), placed.Day(), 0, 0, 0, 0, placed.Location())
	key := day.Format("2006-01-02")

	b := buckets[key]
	if b == nil {
		b = &domain.AnalyticsBucket{
			RestaurantID:    order.RestaurantID,
			Date:            day,
			PeakHours:       make(map[int]int64),
			RevenueByMethod: make(map[string]float64),
			RatingCounts:    make(map[int]int64),
		}
		buckets[key] = b
	}

	total := order.Pricing.Total
	b.OrdersTotal++
	b.RevenueTotal += total
	b.RevenueNet += total
	b.PeakHours[placed.Hour()]++
	b.RevenueByMethod[string(order.Payment.Method)] += total
	b.AverageOrderValue = stats.IncrementalMean(b.AverageOrderValue, b.OrdersTotal, total)

	switch order.Status {
	case domain.StatusDelivered:
		b.OrdersCompleted++
	case domain.StatusCancelled:
		b.OrdersCancelled++
		if order.Cancellation != nil {
			b.RevenueNet -= order.Cancellation.RefundAmount
		}
	}
	if order.Rating != nil {
		b.RatingCounts[*order.Rating]++
	}
}
