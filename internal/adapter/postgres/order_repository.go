package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order with its lines, decrements stock and seeds
// the pending order_created event records, all in one transaction. A
// sold-out line rolls back everything, so stock only ever moves
// together with a committed order row.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (number, customer_id, restaurant_id, type, delivery_address,
		                    status, payment_method, payment_status, payment_amount,
		                    subtotal, tax, delivery_fee, discount, total,
		                    placed_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		order.Number, order.CustomerID, order.RestaurantID, order.Type, order.DeliveryAddress,
		order.Status, order.Payment.Method, order.Payment.Status, order.Payment.Amount,
		order.Pricing.Subtotal, order.Pricing.Tax, order.Pricing.DeliveryFee,
		order.Pricing.Discount, order.Pricing.Total,
		order.Timing.PlacedAt, order.Version, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		addOns, err := json.Marshal(order.Items[i].AddOns)
		if err != nil {
			return fmt.Errorf("failed to marshal add-ons: %w", err)
		}
		itemQuery := `
			INSERT INTO order_items (order_id, menu_item_id, name, category, unit_price, quantity, add_ons, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		err = tx.QueryRow(ctx, itemQuery,
			order.ID, order.Items[i].MenuItemID, order.Items[i].Name, order.Items[i].Category,
			order.Items[i].UnitPrice, order.Items[i].Quantity, addOns, order.Items[i].LineTotal,
		).Scan(&order.Items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		order.Items[i].OrderID = order.ID

		if err := decrementStock(ctx, tx, &order.Items[i]); err != nil {
			return err
		}
	}

	logQuery := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, logQuery, order.ID, order.Status, "intake", time.Now()); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}

	if err := seedEvents(ctx, tx, order, domain.EventOrderCreated); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// decrementStock is a guarded UPDATE inside the order transaction. The
// WHERE clause refuses to go below zero, unlimited stock (-1) passes
// through untouched, and the item is flagged unavailable the moment
// stock reaches zero.
func decrementStock(ctx context.Context, tx Tx, item *domain.LineItem) error {
	query := `
		UPDATE menu_items
		SET stock_quantity = CASE WHEN stock_quantity = -1 THEN stock_quantity ELSE stock_quantity - $2 END,
		    available = (stock_quantity = -1 OR stock_quantity - $2 > 0)
		WHERE id = $1 AND (stock_quantity = -1 OR stock_quantity >= $2)
	`
	tag, err := tx.Exec(ctx, query, item.MenuItemID, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ItemUnavailableError{MenuItemID: item.MenuItemID, Name: item.Name, Reason: "insufficient stock"}
	}
	return nil
}

// seedEvents writes the pending event records (stats and rollup keys)
// in the same transaction as the order mutation. They commit or roll
// back with the order, so every committed event has a durable record
// the repair sweep can reconcile if the inline apply never finishes.
func seedEvents(ctx context.Context, tx Tx, order *domain.Order, events ...domain.EventType) error {
	query := `
		INSERT INTO order_events (key, order_id, event, restaurant_id, status, ready_at, created_at)
		VALUES ($1, $2, $3, $4, 'pending', now() + interval '1 minute', now())
		ON CONFLICT (key) DO NOTHING
	`
	for _, event := range events {
		for _, key := range []string{domain.EventKey(order.ID, event), domain.RollupKey(order.ID, event)} {
			if _, err := tx.Exec(ctx, query, key, order.ID, string(event), order.RestaurantID); err != nil {
				return fmt.Errorf("failed to seed event record: %w", err)
			}
		}
	}
	return nil
}

const orderColumns = `
	id, number, customer_id, restaurant_id, type, delivery_address,
	status, payment_method, payment_status, payment_amount,
	subtotal, tax, delivery_fee, discount, total,
	placed_at, accepted_at, preparation_started_at, ready_at,
	out_for_delivery_at, delivered_at, cancelled_at,
	cancel_reason, cancelled_by, refund_amount, refund_status,
	rating, version, created_at, updated_at
`

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return r.findOne(ctx, query, number)
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order        domain.Order
		cancelReason *string
		cancelledBy  *string
		refundAmount *float64
		refundStatus *string
	)
	err := row.Scan(
		&order.ID, &order.Number, &order.CustomerID, &order.RestaurantID, &order.Type,
		&order.DeliveryAddress, &order.Status,
		&order.Payment.Method, &order.Payment.Status, &order.Payment.Amount,
		&order.Pricing.Subtotal, &order.Pricing.Tax, &order.Pricing.DeliveryFee,
		&order.Pricing.Discount, &order.Pricing.Total,
		&order.Timing.PlacedAt, &order.Timing.AcceptedAt, &order.Timing.PreparationStarted,
		&order.Timing.ReadyAt, &order.Timing.OutForDeliveryAt, &order.Timing.DeliveredAt,
		&order.Timing.CancelledAt,
		&cancelReason, &cancelledBy, &refundAmount, &refundStatus,
		&order.Rating, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelReason != nil {
		order.Cancellation = &domain.Cancellation{
			Reason:      *cancelReason,
			CancelledBy: deref(cancelledBy),
		}
		if refundAmount != nil {
			order.Cancellation.RefundAmount = *refundAmount
		}
		if refundStatus != nil {
			order.Cancellation.RefundStatus = domain.RefundStatus(*refundStatus)
		}
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, order_id, menu_item_id, name, category, unit_price, quantity, add_ons, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item   domain.LineItem
			addOns []byte
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Category,
			&item.UnitPrice, &item.Quantity, &addOns, &item.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if len(addOns) > 0 {
			if err := json.Unmarshal(addOns, &item.AddOns); err != nil {
				return fmt.Errorf("failed to unmarshal add-ons: %w", err)
			}
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// Update writes the mutable order fields guarded by the version column.
// Zero rows affected means another transition won the race. Pending
// event records for the given events commit atomically with the update.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order, events ...domain.EventType) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $1, payment_status = $2,
		    accepted_at = $3, preparation_started_at = $4, ready_at = $5,
		    out_for_delivery_at = $6, delivered_at = $7, cancelled_at = $8,
		    cancel_reason = $9, cancelled_by = $10, refund_amount = $11, refund_status = $12,
		    rating = $13, updated_at = $14, version = version + 1
		WHERE id = $15 AND version = $16
	`

	var (
		cancelReason *string
		cancelledBy  *string
		refundAmount *float64
		refundStatus *string
	)
	if c := order.Cancellation; c != nil {
		cancelReason = &c.Reason
		cancelledBy = &c.CancelledBy
		refundAmount = &c.RefundAmount
		rs := string(c.RefundStatus)
		refundStatus = &rs
	}

	tag, err := tx.Exec(ctx, query,
		order.Status, order.Payment.Status,
		order.Timing.AcceptedAt, order.Timing.PreparationStarted, order.Timing.ReadyAt,
		order.Timing.OutForDeliveryAt, order.Timing.DeliveredAt, order.Timing.CancelledAt,
		cancelReason, cancelledBy, refundAmount, refundStatus,
		order.Rating, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConcurrencyConflictError{OrderID: order.ID}
	}

	if err := seedEvents(ctx, tx, order, events...); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order update: %w", err)
	}

	order.Version++
	return nil
}

func (r *orderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	prefix := fmt.Sprintf("ORD_%s_", now.Format("20060102"))

	query := `SELECT nextval('order_number_seq')`

	var seq int64
	if err := r.db.QueryRow(ctx, query).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to advance order number sequence: %w", err)
	}

	return fmt.Sprintf("%s%06d", prefix, seq), nil
}

func (r *orderRepository) LogStatus(ctx context.Context, orderID int64, status domain.Status, changedBy string) error {
	query := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, orderID, status, changedBy, time.Now()); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Status, &log.ChangedBy, &log.ChangedAt, &log.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

func (r *orderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE restaurant_id = $1 ORDER BY placed_at ASC, id ASC`
	return r.list(ctx, query, restaurantID)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY placed_at ASC, id ASC`
	return r.list(ctx, query, customerID)
}

func (r *orderRepository) list(ctx context.Context, query string, arg any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
