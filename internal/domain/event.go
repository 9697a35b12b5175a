package domain

import "fmt"

// EventType is the qualifying order event applied to aggregates and
// rollups. Together with the order id it forms the idempotency key
// under which each event is applied at most once.
type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventOrderDelivered EventType = "order_delivered"
	EventOrderCancelled EventType = "order_cancelled"
	EventRatingRecorded EventType = "rating_recorded"
)

// EventKey builds the durable idempotency key for (order, event).
func EventKey(orderID int64, event EventType) string {
	return fmt.Sprintf("%d:%s", orderID, event)
}

// RollupKey is the analytics-rollup variant of EventKey. Stats and
// rollups are separate failure domains, so each event carries two keys.
func RollupKey(orderID int64, event EventType) string {
	return "rollup:" + EventKey(orderID, event)
}

// RepairEntry is one event record the repair pass must reconcile: a
// stats or rollup write that failed, or one left pending past its
// grace window by a crash mid-apply.
type RepairEntry struct {
	ID           int64
	Key          string
	OrderID      int64
	Event        EventType
	RestaurantID int64
	Reason       string
	Attempts     int
}
