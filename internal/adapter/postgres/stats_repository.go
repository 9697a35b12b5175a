package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type statsRepository struct {
	db DB
}

func NewStatsRepository(db DB) interfaces.StatsRepository {
	return &statsRepository{db: db}
}

// ApplyRestaurantOrder increments the counters and folds the revenue
// into the moving average in one statement, so concurrent orders
// against the same restaurant never lose updates. The average uses the
// incremental-mean form avg + (v - avg) / n, matching the in-memory
// formula the repair job replays.
func (r *statsRepository) ApplyRestaurantOrder(ctx context.Context, restaurantID int64, revenue float64) error {
	query := `
		INSERT INTO restaurant_stats (restaurant_id, total_orders, total_revenue, average_order_value)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (restaurant_id) DO UPDATE
		SET total_orders = restaurant_stats.total_orders + 1,
		    total_revenue = restaurant_stats.total_revenue + $2,
		    average_order_value = restaurant_stats.average_order_value
		        + ($2 - restaurant_stats.average_order_value) / (restaurant_stats.total_orders + 1)
	`
	if _, err := r.db.Exec(ctx, query, restaurantID, revenue); err != nil {
		return fmt.Errorf("failed to apply restaurant order: %w", err)
	}
	return nil
}

func (r *statsRepository) ApplyCustomerOrder(ctx context.Context, customerID int64, amount float64, points int64, orderDate time.Time) (float64, error) {
	query := `
		INSERT INTO customer_stats (customer_id, loyalty_points, total_spent, tier, total_orders, last_order_date)
		VALUES ($1, $2, $3, 'bronze', 1, $4)
		ON CONFLICT (customer_id) DO UPDATE
		SET loyalty_points = customer_stats.loyalty_points + $2,
		    total_spent = customer_stats.total_spent + $3,
		    total_orders = customer_stats.total_orders + 1,
		    last_order_date = GREATEST(customer_stats.last_order_date, $4)
		RETURNING total_spent
	`
	var totalSpent float64
	if err := r.db.QueryRow(ctx, query, customerID, points, amount, orderDate).Scan(&totalSpent); err != nil {
		return 0, fmt.Errorf("failed to apply customer order: %w", err)
	}
	return totalSpent, nil
}

// UpgradeTier only ever moves the tier up; ranks are compared in SQL so
// concurrent upgrades cannot downgrade each other.
func (r *statsRepository) UpgradeTier(ctx context.Context, customerID int64, tier domain.LoyaltyTier) error {
	query := `
		UPDATE customer_stats
		SET tier = $2
		WHERE customer_id = $1
		  AND CASE tier WHEN 'platinum' THEN 3 WHEN 'gold' THEN 2 WHEN 'silver' THEN 1 ELSE 0 END
		    < CASE $2::text WHEN 'platinum' THEN 3 WHEN 'gold' THEN 2 WHEN 'silver' THEN 1 ELSE 0 END
	`
	if _, err := r.db.Exec(ctx, query, customerID, string(tier)); err != nil {
		return fmt.Errorf("failed to upgrade tier: %w", err)
	}
	return nil
}

func (r *statsRepository) ApplyCategoryOrder(ctx context.Context, restaurantID int64, category string, orders int64, revenue float64) error {
	query := `
		INSERT INTO category_stats (restaurant_id, category, total_orders, total_revenue)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (restaurant_id, category) DO UPDATE
		SET total_orders = category_stats.total_orders + $3,
		    total_revenue = category_stats.total_revenue + $4
	`
	if _, err := r.db.Exec(ctx, query, restaurantID, category, orders, revenue); err != nil {
		return fmt.Errorf("failed to apply category order: %w", err)
	}
	return nil
}

func (r *statsRepository) ApplyMenuItemOrder(ctx context.Context, itemID int64, quantity int64, revenue float64) error {
	query := `
		UPDATE menu_items
		SET total_orders = total_orders + $2,
		    total_revenue = total_revenue + $3
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, itemID, quantity, revenue); err != nil {
		return fmt.Errorf("failed to apply menu item order: %w", err)
	}
	return nil
}

func (r *statsRepository) ApplyMenuItemRating(ctx context.Context, itemID int64, rating int) error {
	query := `
		UPDATE menu_items
		SET rating_count = rating_count + 1,
		    average_rating = average_rating + ($2 - average_rating) / (rating_count + 1)
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, itemID, float64(rating)); err != nil {
		return fmt.Errorf("failed to apply menu item rating: %w", err)
	}
	return nil
}

func (r *statsRepository) GetRestaurantStats(ctx context.Context, restaurantID int64) (*domain.RestaurantStats, error) {
	query := `
		SELECT restaurant_id, total_orders, total_revenue, average_order_value
		FROM restaurant_stats
		WHERE restaurant_id = $1
	`
	var stats domain.RestaurantStats
	err := r.db.QueryRow(ctx, query, restaurantID).Scan(
		&stats.RestaurantID, &stats.TotalOrders, &stats.TotalRevenue, &stats.AverageOrderValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.RestaurantStats{RestaurantID: restaurantID}, nil
		}
		return nil, fmt.Errorf("failed to load restaurant stats: %w", err)
	}
	return &stats, nil
}

func (r *statsRepository) GetCustomerStats(ctx context.Context, customerID int64) (*domain.CustomerStats, error) {
	query := `
		SELECT customer_id, loyalty_points, total_spent, tier, total_orders, last_order_date
		FROM customer_stats
		WHERE customer_id = $1
	`
	var stats domain.CustomerStats
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&stats.CustomerID, &stats.LoyaltyPoints, &stats.TotalSpent, &stats.Tier,
		&stats.TotalOrders, &stats.LastOrderDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.CustomerStats{CustomerID: customerID, Tier: domain.TierBronze}, nil
		}
		return nil, fmt.Errorf("failed to load customer stats: %w", err)
	}
	return &stats, nil
}

func (r *statsRepository) ReplaceRestaurantStats(ctx context.Context, stats *domain.RestaurantStats) error {
	query := `
		INSERT INTO restaurant_stats (restaurant_id, total_orders, total_revenue, average_order_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (restaurant_id) DO UPDATE
		SET total_orders = $2, total_revenue = $3, average_order_value = $4
	`
	if _, err := r.db.Exec(ctx, query, stats.RestaurantID, stats.TotalOrders, stats.TotalRevenue, stats.AverageOrderValue); err != nil {
		return fmt.Errorf("failed to replace restaurant stats: %w", err)
	}
	return nil
}

func (r *statsRepository) ReplaceCustomerStats(ctx context.Context, stats *domain.CustomerStats) error {
	query := `
		INSERT INTO customer_stats (customer_id, loyalty_points, total_spent, tier, total_orders, last_order_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id) DO UPDATE
		SET loyalty_points = $2, total_spent = $3,
		    tier = CASE
		        WHEN CASE customer_stats.tier WHEN 'platinum' THEN 3 WHEN 'gold' THEN 2 WHEN 'silver' THEN 1 ELSE 0 END
		           > CASE $4::text WHEN 'platinum' THEN 3 WHEN 'gold' THEN 2 WHEN 'silver' THEN 1 ELSE 0 END
		        THEN customer_stats.tier ELSE $4 END,
		    total_orders = $5, last_order_date = $6
	`
	if _, err := r.db.Exec(ctx, query, stats.CustomerID, stats.LoyaltyPoints, stats.TotalSpent,
		string(stats.Tier), stats.TotalOrders, stats.LastOrderDate); err != nil {
		return fmt.Errorf("failed to replace customer stats: %w", err)
	}
	return nil
}

func (r *statsRepository) ReplaceCategoryStats(ctx context.Context, restaurantID int64, stats []*domain.CategoryStats) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM category_stats WHERE restaurant_id = $1`, restaurantID); err != nil {
		return fmt.Errorf("failed to clear category stats: %w", err)
	}
	for _, cs := range stats {
		query := `
			INSERT INTO category_stats (restaurant_id, category, total_orders, total_revenue)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, query, cs.RestaurantID, cs.Category, cs.TotalOrders, cs.TotalRevenue); err != nil {
			return fmt.Errorf("failed to insert category stats: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *statsRepository) ReplaceMenuItemStats(ctx context.Context, items []*domain.MenuItem) error {
	for _, mi := range items {
		query := `
			UPDATE menu_items
			SET total_orders = $2, total_revenue = $3, average_rating = $4, rating_count = $5
			WHERE id = $1
		`
		if _, err := r.db.Exec(ctx, query, mi.ID, mi.TotalOrders, mi.TotalRevenue, mi.AverageRating, mi.RatingCount); err != nil {
			return fmt.Errorf("failed to replace menu item stats: %w", err)
		}
	}
	return nil
}
