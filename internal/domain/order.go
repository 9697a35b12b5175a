package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
)

// AddOn is an extra attached to a line item, priced per unit.
type AddOn struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// LineItem is one product entry within an order. Name, unit price and
// category are snapshotted from the catalog at intake so later catalog
// edits never change a placed order.
type LineItem struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	AddOns     []AddOn `json:"add_ons,omitempty"`
	LineTotal  float64 `json:"line_total"`
}

type Payment struct {
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
	Amount float64       `json:"amount"`
}

type Pricing struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Timing holds one timestamp per lifecycle stage. Only the fields
// consistent with the current or a past status are ever populated.
type Timing struct {
	PlacedAt           time.Time  `json:"placed_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	PreparationStarted *time.Time `json:"preparation_started_at,omitempty"`
	ReadyAt            *time.Time `json:"ready_at,omitempty"`
	OutForDeliveryAt   *time.Time `json:"out_for_delivery_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

type Cancellation struct {
	Reason       string       `json:"reason"`
	CancelledBy  string       `json:"cancelled_by"`
	RefundAmount float64      `json:"refund_amount"`
	RefundStatus RefundStatus `json:"refund_status"`
}

// Order is the system of record. All aggregates are derived from it.
type Order struct {
	ID              int64
	Number          string
	CustomerID      int64
	RestaurantID    int64
	Type            OrderType
	DeliveryAddress *string
	Items           []LineItem
	Status          Status
	Payment         Payment
	Pricing         Pricing
	Timing          Timing
	Cancellation    *Cancellation
	Rating          *int
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanTransitionTo checks the target against the adjacency table and,
// for the READY fork, against the order type.
func (o *Order) CanTransitionTo(target Status) bool {
	if target == StatusOutForDelivery && o.Type != OrderTypeDelivery {
		return false
	}
	if o.Status == StatusReady && target == StatusDelivered && o.Type == OrderTypeDelivery {
		return false
	}
	for _, s := range validTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to target, stamping the matching timing
// field. The order is left untouched when the transition is illegal.
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}

	o.Status = target
	o.UpdatedAt = now
	o.stampTiming(target, now)
	return nil
}

func (o *Order) stampTiming(s Status, now time.Time) {
	switch s {
	case StatusAccepted:
		o.Timing.AcceptedAt = &now
	case StatusPreparing:
		o.Timing.PreparationStarted = &now
	case StatusReady:
		o.Timing.ReadyAt = &now
	case StatusOutForDelivery:
		o.Timing.OutForDeliveryAt = &now
	case StatusDelivered:
		o.Timing.DeliveredAt = &now
	case StatusCancelled:
		o.Timing.CancelledAt = &now
	}
}

// Cancel transitions the order to CANCELLED and records the refund
// decision: a completed payment is refunded in full, anything else
// refunds nothing.
func (o *Order) Cancel(reason, cancelledBy string, now time.Time) error {
	if err := o.TransitionTo(StatusCancelled, now); err != nil {
		return err
	}

	c := &Cancellation{
		Reason:       reason,
		CancelledBy:  cancelledBy,
		RefundStatus: RefundNone,
	}
	if o.Payment.Status == PaymentCompleted {
		c.RefundAmount = o.Pricing.Total
		c.RefundStatus = RefundPending
	}
	o.Cancellation = c
	return nil
}
