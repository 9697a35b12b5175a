package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type analyticsRepository struct {
	db DB
}

func NewAnalyticsRepository(db DB) interfaces.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// ApplyOrderCreated upserts the (restaurant, date) daily row. Counter
// and histogram updates are expressed inside the statement so the row
// is never read-modify-written by the application.
func (r *analyticsRepository) ApplyOrderCreated(ctx context.Context, restaurantID int64, day time.Time, hour int, amount float64, method domain.PaymentMethod) error {
	query := `
		INSERT INTO analytics_daily (restaurant_id, date, orders_total, orders_completed, orders_cancelled,
		                             average_order_value, revenue_total, revenue_net,
		                             peak_hours, revenue_by_method, rating_counts)
		VALUES ($1, $2, 1, 0, 0, $3, $3, $3,
		        jsonb_build_object($4::text, 1),
		        jsonb_build_object($5::text, $3::numeric),
		        '{}'::jsonb)
		ON CONFLICT (restaurant_id, date) DO UPDATE
		SET orders_total = analytics_daily.orders_total + 1,
		    revenue_total = analytics_daily.revenue_total + $3,
		    revenue_net = analytics_daily.revenue_net + $3,
		    average_order_value = analytics_daily.average_order_value
		        + ($3 - analytics_daily.average_order_value) / (analytics_daily.orders_total + 1),
		    peak_hours = jsonb_set(analytics_daily.peak_hours, ARRAY[$4::text],
		        (COALESCE(analytics_daily.peak_hours->>$4, '0')::bigint + 1)::text::jsonb),
		    revenue_by_method = jsonb_set(analytics_daily.revenue_by_method, ARRAY[$5::text],
		        (COALESCE(analytics_daily.revenue_by_method->>$5, '0')::numeric + $3::numeric)::text::jsonb)
	`
	_, err := r.db.Exec(ctx, query, restaurantID, dateOnly(day), amount, strconv.Itoa(hour), string(method))
	if err != nil {
		return fmt.Errorf("failed to apply order to daily bucket: %w", err)
	}
	return nil
}

func (r *analyticsRepository) ApplyOrderCompleted(ctx context.Context, restaurantID int64, day time.Time) error {
	query := `
		UPDATE analytics_daily
		SET orders_completed = orders_completed + 1
		WHERE restaurant_id = $1 AND date = $2
	`
	if _, err := r.db.Exec(ctx, query, restaurantID, dateOnly(day)); err != nil {
		return fmt.Errorf("failed to apply completion to daily bucket: %w", err)
	}
	return nil
}

func (r *analyticsRepository) ApplyOrderCancelled(ctx context.Context, restaurantID int64, day time.Time, refund float64) error {
	query := `
		UPDATE analytics_daily
		SET orders_cancelled = orders_cancelled + 1,
		    revenue_net = revenue_net - $3
		WHERE restaurant_id = $1 AND date = $2
	`
	if _, err := r.db.Exec(ctx, query, restaurantID, dateOnly(day), refund); err != nil {
		return fmt.Errorf("failed to apply cancellation to daily bucket: %w", err)
	}
	return nil
}

func (r *analyticsRepository) ApplyRating(ctx context.Context, restaurantID int64, day time.Time, rating int) error {
	query := `
		UPDATE analytics_daily
		SET rating_counts = jsonb_set(rating_counts, ARRAY[$3::text],
		        (COALESCE(rating_counts->>$3, '0')::bigint + 1)::text::jsonb)
		WHERE restaurant_id = $1 AND date = $2
	`
	if _, err := r.db.Exec(ctx, query, restaurantID, dateOnly(day), strconv.Itoa(rating)); err != nil {
		return fmt.Errorf("failed to apply rating to daily bucket: %w", err)
	}
	return nil
}

func (r *analyticsRepository) GetRange(ctx context.Context, restaurantID int64, from, to time.Time) ([]*domain.AnalyticsBucket, error) {
	query := `
		SELECT restaurant_id, date, orders_total, orders_completed, orders_cancelled,
		       average_order_value, revenue_total, revenue_net,
		       peak_hours, revenue_by_method, rating_counts
		FROM analytics_daily
		WHERE restaurant_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	rows, err := r.db.Query(ctx, query, restaurantID, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*domain.AnalyticsBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *analyticsRepository) ReplaceBuckets(ctx context.Context, restaurantID int64, buckets []*domain.AnalyticsBucket) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM analytics_daily WHERE restaurant_id = $1`, restaurantID); err != nil {
		return fmt.Errorf("failed to clear daily buckets: %w", err)
	}

	for _, b := range buckets {
		peakHours, err := marshalIntKeys(b.PeakHours)
		if err != nil {
			return err
		}
		ratings, err := marshalIntKeys(b.RatingCounts)
		if err != nil {
			return err
		}
		byMethod, err := json.Marshal(b.RevenueByMethod)
		if err != nil {
			return fmt.Errorf("failed to marshal revenue by method: %w", err)
		}

		query := `
			INSERT INTO analytics_daily (restaurant_id, date, orders_total, orders_completed, orders_cancelled,
			                             average_order_value, revenue_total, revenue_net,
			                             peak_hours, revenue_by_method, rating_counts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.Exec(ctx, query, b.RestaurantID, dateOnly(b.Date),
			b.OrdersTotal, b.OrdersCompleted, b.OrdersCancelled,
			b.AverageOrderValue, b.RevenueTotal, b.RevenueNet,
			peakHours, byMethod, ratings); err != nil {
			return fmt.Errorf("failed to insert daily bucket: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func scanBucket(row Row) (*domain.AnalyticsBucket, error) {
	var (
		b         domain.AnalyticsBucket
		peakHours []byte
		byMethod  []byte
		ratings   []byte
	)
	err := row.Scan(
		&b.RestaurantID, &b.Date, &b.OrdersTotal, &b.OrdersCompleted, &b.OrdersCancelled,
		&b.AverageOrderValue, &b.RevenueTotal, &b.RevenueNet,
		&peakHours, &byMethod, &ratings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily bucket: %w", err)
	}

	if b.PeakHours, err = unmarshalIntKeys(peakHours); err != nil {
		return nil, err
	}
	if b.RatingCounts, err = unmarshalIntKeys(ratings); err != nil {
		return nil, err
	}
	b.RevenueByMethod = make(map[string]float64)
	if len(byMethod) > 0 {
		if err := json.Unmarshal(byMethod, &b.RevenueByMethod); err != nil {
			return nil, fmt.Errorf("failed to unmarshal revenue by method: %w", err)
		}
	}
	return &b, nil
}

// jsonb objects key by string; the histograms key by int in the domain.

func marshalIntKeys(m map[int]int64) ([]byte, error) {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal histogram: %w", err)
	}
	return data, nil
}

func unmarshalIntKeys(data []byte) (map[int]int64, error) {
	out := make(map[int]int64)
	if len(data) == 0 {
		return out, nil
	}
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal histogram: %w", err)
	}
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid histogram key %q: %w", k, err)
		}
		out[n] = v
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
