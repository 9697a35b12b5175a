package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type catalogRepository struct {
	db DB
}

func NewCatalogRepository(db DB) interfaces.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, category, price, available, stock_quantity,
		       total_orders, total_revenue, average_rating, rating_count
		FROM menu_items
		WHERE id = $1
	`

	var item domain.MenuItem
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.RestaurantID, &item.Name, &item.Category, &item.Price,
		&item.Available, &item.StockQuantity,
		&item.TotalOrders, &item.TotalRevenue, &item.AverageRating, &item.RatingCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}
	return &item, nil
}

// EvictMenuItem is a no-op: reads hit the table directly, so there is
// nothing to invalidate at this layer.
func (r *catalogRepository) EvictMenuItem(ctx context.Context, itemID int64) error {
	return nil
}
