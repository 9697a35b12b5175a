package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type idempotencyRepository struct {
	db DB
}

func NewIdempotencyRepository(db DB) interfaces.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

// Claim flips the seeded record from pending to applying; exactly one
// caller per key observes RowsAffected == 1 and wins. Keys never seeded
// by an order transaction are inserted directly as applying, so the
// crash guarantee holds either way: a record not marked applied becomes
// sweepable once its grace window (ready_at) passes.
func (r *idempotencyRepository) Claim(ctx context.Context, key string, orderID int64, event domain.EventType, restaurantID int64) (bool, error) {
	query := `
		INSERT INTO order_events (key, order_id, event, restaurant_id, status, attempts, ready_at, created_at)
		VALUES ($1, $2, $3, $4, 'applying', 1, now() + interval '1 minute', now())
		ON CONFLICT (key) DO UPDATE
		SET status = 'applying', attempts = order_events.attempts + 1
		WHERE order_events.status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, key, orderID, string(event), restaurantID)
	if err != nil {
		return false, fmt.Errorf("failed to claim event record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *idempotencyRepository) MarkApplied(ctx context.Context, key string) error {
	query := `UPDATE order_events SET status = 'applied', applied_at = $2 WHERE key = $1`
	if _, err := r.db.Exec(ctx, query, key, time.Now()); err != nil {
		return fmt.Errorf("failed to mark event applied: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) MarkFailed(ctx context.Context, key string, reason string) error {
	query := `UPDATE order_events SET status = 'failed', reason = $2, ready_at = now() WHERE key = $1`
	if _, err := r.db.Exec(ctx, query, key, reason); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

// PendingRepairs sweeps everything not yet applied whose grace window
// has passed: explicit failures and records orphaned by a crash between
// the order commit and the aggregate writes.
func (r *idempotencyRepository) PendingRepairs(ctx context.Context, limit int) ([]*domain.RepairEntry, error) {
	query := `
		SELECT id, key, order_id, event, restaurant_id, COALESCE(reason, ''), attempts
		FROM order_events
		WHERE status <> 'applied' AND ready_at <= now()
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query repair entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.RepairEntry
	for rows.Next() {
		var e domain.RepairEntry
		var event string
		if err := rows.Scan(&e.ID, &e.Key, &e.OrderID, &event, &e.RestaurantID, &e.Reason, &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan repair entry: %w", err)
		}
		e.Event = domain.EventType(event)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *idempotencyRepository) MarkRepaired(ctx context.Context, entryID int64) error {
	query := `UPDATE order_events SET status = 'applied', applied_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, entryID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark entry repaired: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) MarkAttempted(ctx context.Context, entryID int64) error {
	query := `UPDATE order_events SET attempts = attempts + 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, entryID); err != nil {
		return fmt.Errorf("failed to record repair attempt: %w", err)
	}
	return nil
}
