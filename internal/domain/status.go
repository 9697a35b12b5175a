package domain

import "time"

type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusRejected       Status = "rejected"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// validTransitions is the closed adjacency table of the order lifecycle.
// READY forks on the order type: delivery orders go out for delivery,
// pickup orders are handed over and become delivered directly.
var validTransitions = map[Status][]Status{
	StatusPending:        {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:       {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusRejected:       {},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// StatusLog represents one entry of the order status audit trail.
type StatusLog struct {
	ID        int64
	OrderID   int64
	Status    Status
	ChangedBy string
	ChangedAt time.Time
	Notes     *string
}
