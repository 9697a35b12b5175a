package domain

import "time"

// UnlimitedStock marks a menu item that is never stock-limited.
const UnlimitedStock = -1

// MenuItem carries the catalog fields the core reads at intake plus the
// statistic/stock fields it owns. Catalog master data (name, price,
// category, description) is never mutated here.
type MenuItem struct {
	ID            int64
	RestaurantID  int64
	Name          string
	Category      string
	Price         float64
	Available     bool
	StockQuantity int
	TotalOrders   int64
	TotalRevenue  float64
	AverageRating float64
	RatingCount   int64
}

type RestaurantStats struct {
	RestaurantID      int64
	TotalOrders       int64
	TotalRevenue      float64
	AverageOrderValue float64
}

type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

var tierRank = map[LoyaltyTier]int{
	TierBronze:   0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
}

// TierFor derives the loyalty tier from lifetime spend.
func TierFor(totalSpent float64) LoyaltyTier {
	switch {
	case totalSpent >= 10000:
		return TierPlatinum
	case totalSpent >= 5000:
		return TierGold
	case totalSpent >= 2000:
		return TierSilver
	default:
		return TierBronze
	}
}

// Outranks reports whether t is a strictly higher tier than other.
// Tiers only ever upgrade, never downgrade.
func (t LoyaltyTier) Outranks(other LoyaltyTier) bool {
	return tierRank[t] > tierRank[other]
}

type CustomerStats struct {
	CustomerID    int64
	LoyaltyPoints int64
	TotalSpent    float64
	Tier          LoyaltyTier
	TotalOrders   int64
	LastOrderDate *time.Time
}

type CategoryStats struct {
	RestaurantID int64
	Category     string
	TotalOrders  int64
	TotalRevenue float64
}
