package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/app/inventory"
	"github.com/bekzatkz/dastarhan/internal/app/pricing"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

const defaultOpTimeout = 5 * time.Second

// Orchestrator drives every order through the lifecycle. The order's
// own write is the durability boundary: pricing, inventory and the
// state machine run before it and are fatal on error; aggregate stats,
// rollups and event publication run after it, best effort, queued for
// repair when they fail.
type Orchestrator struct {
	orders    interfaces.OrderRepository
	catalog   interfaces.CatalogRepository
	calc      *pricing.Calculator
	adjuster  *inventory.Adjuster
	stats     EventApplier
	rollups   EventApplier
	publisher interfaces.MessagePublisher
	logger    logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

// EventApplier is the shared shape of the stats updater and the rollup
// writer: apply one (order, event) pair at most once.
type EventApplier interface {
	Apply(ctx context.Context, order *domain.Order, event domain.EventType) error
}

func NewOrchestrator(
	orders interfaces.OrderRepository,
	catalog interfaces.CatalogRepository,
	calc *pricing.Calculator,
	adjuster *inventory.Adjuster,
	stats EventApplier,
	rollups EventApplier,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	timeout time.Duration,
) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Orchestrator{
		orders:    orders,
		catalog:   catalog,
		calc:      calc,
		adjuster:  adjuster,
		stats:     stats,
		rollups:   rollups,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}
}

// CreateOrder validates the command, snapshots catalog prices, computes
// money totals and persists the order in PENDING. Stock decrements ride
// the insert transaction, so a failed insert leaves nothing persisted
// at all and a caller retry starts from a clean slate.
func (o *Orchestrator) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	if err := validateCreateCommand(cmd); err != nil {
		return nil, err
	}

	items, menuItems, err := o.snapshotLineItems(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if err := o.adjuster.Validate(ctx, menuItems, cmd.Items); err != nil {
		return nil, err
	}

	prices, err := o.calc.Quote(items, domain.OrderType(cmd.OrderType), cmd.Discount)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	number, err := o.orders.GenerateOrderNumber(opCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}

	now := o.now()
	order := &domain.Order{
		Number:          number,
		CustomerID:      cmd.CustomerID,
		RestaurantID:    cmd.RestaurantID,
		Type:            domain.OrderType(cmd.OrderType),
		DeliveryAddress: cmd.DeliveryAddress,
		Items:           items,
		Status:          domain.StatusPending,
		Payment: domain.Payment{
			Method: domain.PaymentMethod(cmd.PaymentMethod),
			Status: initialPaymentStatus(domain.PaymentMethod(cmd.PaymentMethod)),
			Amount: prices.Total,
		},
		Pricing:   prices,
		Timing:    domain.Timing{PlacedAt: now},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.orders.Create(opCtx, order); err != nil {
		o.logger.Error("order_create_failed", "Failed to persist order", number, nil, err)
		return nil, err
	}
	o.logger.Debug("order_created", "Order persisted", number, map[string]interface{}{
		"total": order.Pricing.Total,
	})
	o.adjuster.Evict(opCtx, order)

	o.applyDerived(ctx, order, domain.EventOrderCreated)
	o.publishEvent(ctx, order, domain.EventOrderCreated)

	return order, nil
}

// Transition moves the order to target. A request for the state the
// order is already in is a no-op, not an error, and stamps nothing.
func (o *Orchestrator) Transition(ctx context.Context, orderNumber string, target domain.Status, actor string) (*domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	order, err := o.orders.FindByNumber(opCtx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}

	oldStatus := order.Status
	if err := order.TransitionTo(target, o.now()); err != nil {
		return nil, err
	}
	if target == domain.StatusDelivered && order.Payment.Status == domain.PaymentPending {
		order.Payment.Status = domain.PaymentCompleted
	}

	var events []domain.EventType
	if target == domain.StatusDelivered {
		events = append(events, domain.EventOrderDelivered)
	}
	if err := o.persistTransition(opCtx, order, actor, events...); err != nil {
		return nil, err
	}

	o.logger.Debug("order_transitioned", "Order status changed", orderNumber, map[string]interface{}{
		"from": string(oldStatus),
		"to":   string(target),
	})

	if target == domain.StatusDelivered {
		o.applyDerived(ctx, order, domain.EventOrderDelivered)
	}
	o.publishStatusUpdate(ctx, order, oldStatus, actor)

	return order, nil
}

// CancelOrder is an ordinary transition to CANCELLED plus the refund
// decision. Cancelling an already-cancelled order is a no-op.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderNumber, reason, actor string) (*domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	order, err := o.orders.FindByNumber(opCtx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.StatusCancelled {
		return order, nil
	}

	oldStatus := order.Status
	if err := order.Cancel(reason, actor, o.now()); err != nil {
		return nil, err
	}

	if err := o.persistTransition(opCtx, order, actor, domain.EventOrderCancelled); err != nil {
		return nil, err
	}

	o.logger.Debug("order_cancelled", "Order cancelled", orderNumber, map[string]interface{}{
		"reason": reason,
		"refund": order.Cancellation.RefundAmount,
	})

	o.applyDerived(ctx, order, domain.EventOrderCancelled)
	o.publishStatusUpdate(ctx, order, oldStatus, actor)

	return order, nil
}

// RecordRating attaches a 1-5 rating to a delivered order, once.
func (o *Orchestrator) RecordRating(ctx context.Context, orderNumber string, rating int) (*domain.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.ErrInvalidRating
	}

	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	order, err := o.orders.FindByNumber(opCtx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusDelivered {
		return nil, domain.ErrOrderNotRated
	}
	if order.Rating != nil {
		return order, nil
	}

	order.Rating = &rating
	order.UpdatedAt = o.now()
	if err := o.orders.Update(opCtx, order, domain.EventRatingRecorded); err != nil {
		return nil, err
	}

	o.applyDerived(ctx, order, domain.EventRatingRecorded)

	return order, nil
}

// persistTransition commits the order update together with the pending
// event records for events, then appends the audit log line.
func (o *Orchestrator) persistTransition(ctx context.Context, order *domain.Order, actor string, events ...domain.EventType) error {
	if err := o.orders.Update(ctx, order, events...); err != nil {
		return err
	}
	if err := o.orders.LogStatus(ctx, order.ID, order.Status, actor); err != nil {
		// The transition itself is durable; a missing log line only
		// degrades the audit trail.
		o.logger.Error("status_log_failed", "Failed to append status log", order.Number, nil, err)
	}
	return nil
}

// applyDerived runs the stats updater and the rollup writer. Both are
// isolated failure domains: an error here is already queued for repair,
// so it is logged and dropped.
func (o *Orchestrator) applyDerived(ctx context.Context, order *domain.Order, event domain.EventType) {
	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.stats.Apply(opCtx, order, event); err != nil {
		var aggErr *domain.AggregateUpdateError
		if errors.As(err, &aggErr) {
			o.logger.Error("stats_deferred", "Aggregate update deferred to repair", order.Number, map[string]interface{}{
				"key": aggErr.Key,
			}, err)
		} else {
			o.logger.Error("stats_failed", "Aggregate update failed", order.Number, nil, err)
		}
	}

	if err := o.rollups.Apply(opCtx, order, event); err != nil {
		var aggErr *domain.AggregateUpdateError
		if errors.As(err, &aggErr) {
			o.logger.Error("rollup_deferred", "Rollup write deferred to repair", order.Number, map[string]interface{}{
				"key": aggErr.Key,
			}, err)
		} else {
			o.logger.Error("rollup_failed", "Rollup write failed", order.Number, nil, err)
		}
	}
}

func (o *Orchestrator) publishEvent(ctx context.Context, order *domain.Order, event domain.EventType) {
	msg := interfaces.OrderEventMessage{
		Event:        event,
		OrderNumber:  order.Number,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Status:       order.Status,
		Total:        order.Pricing.Total,
		OccurredAt:   o.now(),
	}
	if err := o.publisher.PublishOrderEvent(ctx, msg); err != nil {
		o.logger.Error("event_publish_failed", "Failed to publish order event", order.Number, map[string]interface{}{
			"event": string(event),
		}, err)
	}
}

func (o *Orchestrator) publishStatusUpdate(ctx context.Context, order *domain.Order, oldStatus domain.Status, actor string) {
	msg := interfaces.StatusUpdateMessage{
		OrderNumber: order.Number,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
		ChangedBy:   actor,
		Timestamp:   o.now(),
	}
	if err := o.publisher.PublishStatusUpdate(ctx, msg); err != nil {
		o.logger.Error("status_publish_failed", "Failed to publish status update", order.Number, nil, err)
	}
}

func (o *Orchestrator) snapshotLineItems(ctx context.Context, cmd interfaces.CreateOrderCommand) ([]domain.LineItem, []*domain.MenuItem, error) {
	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	items := make([]domain.LineItem, len(cmd.Items))
	menuItems := make([]*domain.MenuItem, len(cmd.Items))
	for i, line := range cmd.Items {
		mi, err := o.catalog.FindMenuItem(opCtx, line.MenuItemID)
		if err != nil {
			return nil, nil, err
		}
		menuItems[i] = mi
		items[i] = domain.LineItem{
			MenuItemID: mi.ID,
			Name:       mi.Name,
			Category:   mi.Category,
			UnitPrice:  mi.Price,
			Quantity:   line.Quantity,
			AddOns:     line.AddOns,
		}
		items[i].LineTotal = pricing.Round2(pricing.LineTotal(items[i]))
	}
	return items, menuItems, nil
}

func validateCreateCommand(cmd interfaces.CreateOrderCommand) error {
	if len(cmd.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, line := range cmd.Items {
		if line.Quantity < 1 {
			return domain.ErrInvalidQuantity
		}
	}
	ot := domain.OrderType(cmd.OrderType)
	if ot != domain.OrderTypePickup && ot != domain.OrderTypeDelivery {
		return fmt.Errorf("invalid order type %q", cmd.OrderType)
	}
	if ot == domain.OrderTypeDelivery && (cmd.DeliveryAddress == nil || len(*cmd.DeliveryAddress) < 10) {
		return errors.New("delivery address required (min 10 characters)")
	}
	pm := domain.PaymentMethod(cmd.PaymentMethod)
	if pm != domain.PaymentMethodCash && pm != domain.PaymentMethodCard && pm != domain.PaymentMethodWallet {
		return fmt.Errorf("invalid payment method %q", cmd.PaymentMethod)
	}
	return nil
}

// Card and wallet payments are captured at placement; cash settles on
// handover.
func initialPaymentStatus(m domain.PaymentMethod) domain.PaymentStatus {
	if m == domain.PaymentMethodCash {
		return domain.PaymentPending
	}
	return domain.PaymentCompleted
}
