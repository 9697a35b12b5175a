package inventory

import (
	"context"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

// Adjuster validates availability before an order is priced and evicts
// cached catalog entries after the order transaction has moved stock.
// The decrement itself rides the order insert transaction, so stock
// only changes together with a committed order row.
type Adjuster struct {
	catalog interfaces.CatalogRepository
	logger  logger.Logger
}

func NewAdjuster(catalog interfaces.CatalogRepository, logger logger.Logger) *Adjuster {
	return &Adjuster{
		catalog: catalog,
		logger:  logger,
	}
}

// Validate checks that every requested item is purchasable at the
// requested quantity without touching stock. It runs before anything is
// persisted so a failure aborts the order with no side effects. The
// guarded decrement in the order transaction re-checks under lock;
// this pass only fails fast on what the catalog already shows.
func (a *Adjuster) Validate(ctx context.Context, items []*domain.MenuItem, cmd []interfaces.CreateOrderItemCommand) error {
	if len(cmd) == 0 {
		return domain.ErrEmptyOrder
	}

	for i, line := range cmd {
		item := items[i]
		if !item.Available {
			return &domain.ItemUnavailableError{MenuItemID: item.ID, Name: item.Name, Reason: "not available"}
		}
		if item.StockQuantity != domain.UnlimitedStock && item.StockQuantity < line.Quantity {
			return &domain.ItemUnavailableError{MenuItemID: item.ID, Name: item.Name, Reason: "insufficient stock"}
		}
	}
	return nil
}

// Evict drops the cached entries of every line item after a committed
// order. Best effort: a failed eviction is logged and the entry ages
// out with its TTL.
func (a *Adjuster) Evict(ctx context.Context, order *domain.Order) {
	for _, line := range order.Items {
		if err := a.catalog.EvictMenuItem(ctx, line.MenuItemID); err != nil {
			a.logger.Debug("inventory_evict_failed", "Failed to evict catalog entry", order.Number, map[string]interface{}{
				"item_id": line.MenuItemID,
			})
		}
	}
}
