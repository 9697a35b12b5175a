package domain

import "time"

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// AnalyticsBucket is the per-(restaurant, local date) DAILY summary.
// Weekly, monthly and yearly views are computed on read by summing
// daily buckets over the matching date range, never stored.
type AnalyticsBucket struct {
	RestaurantID      int64              `json:"restaurant_id"`
	Date              time.Time          `json:"date"`
	OrdersTotal       int64              `json:"orders_total"`
	OrdersCompleted   int64              `json:"orders_completed"`
	OrdersCancelled   int64              `json:"orders_cancelled"`
	AverageOrderValue float64            `json:"average_order_value"`
	PeakHours         map[int]int64      `json:"peak_hours"`
	RevenueTotal      float64            `json:"revenue_total"`
	RevenueNet        float64            `json:"revenue_net"`
	RevenueByMethod   map[string]float64 `json:"revenue_by_payment_method"`
	RatingCounts      map[int]int64      `json:"rating_counts"`
}

// AnalyticsSummary is the read-side view over one or more daily buckets.
type AnalyticsSummary struct {
	RestaurantID      int64              `json:"restaurant_id"`
	Period            Period             `json:"period"`
	From              time.Time          `json:"from"`
	To                time.Time          `json:"to"`
	OrdersTotal       int64              `json:"orders_total"`
	OrdersCompleted   int64              `json:"orders_completed"`
	OrdersCancelled   int64              `json:"orders_cancelled"`
	AverageOrderValue float64            `json:"average_order_value"`
	PeakHours         map[int]int64      `json:"peak_hours"`
	RevenueTotal      float64            `json:"revenue_total"`
	RevenueNet        float64            `json:"revenue_net"`
	RevenueByMethod   map[string]float64 `json:"revenue_by_payment_method"`
	RatingCounts      map[int]int64      `json:"rating_counts"`
}

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Range returns the [from, to) date span of the period containing day.
// Weeks start on Monday.
func (p Period) Range(day time.Time) (time.Time, time.Time) {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	switch p {
	case PeriodWeekly:
		offset := (int(d.Weekday()) + 6) % 7
		from := d.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	case PeriodMonthly:
		from := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		return from, from.AddDate(0, 1, 0)
	case PeriodYearly:
		from := time.Date(d.Year(), 1, 1, 0, 0, 0, 0, d.Location())
		return from, from.AddDate(1, 0, 0)
	default:
		return d, d.AddDate(0, 0, 1)
	}
}
