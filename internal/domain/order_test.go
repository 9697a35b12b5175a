package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeliveryOrder(status Status) *Order {
	addr := "12 Abay Ave"
	return &Order{
		ID:              1,
		Number:          "ORD_20260301_000001",
		CustomerID:      7,
		RestaurantID:    3,
		Type:            OrderTypeDelivery,
		DeliveryAddress: &addr,
		Status:          status,
		Payment:         Payment{Method: PaymentMethodCard, Status: PaymentCompleted, Amount: 602.25},
		Pricing:         Pricing{Subtotal: 545, Tax: 27.25, DeliveryFee: 30, Total: 602.25},
		Timing:          Timing{PlacedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Version:         1,
	}
}

func TestOrder_LifecyclePath_Delivery(t *testing.T) {
	order := newDeliveryOrder(StatusPending)
	now := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	path := []Status{StatusAccepted, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered}
	for _, next := range path {
		require.NoError(t, order.TransitionTo(next, now))
		assert.Equal(t, next, order.Status)
	}

	require.NotNil(t, order.Timing.AcceptedAt)
	require.NotNil(t, order.Timing.PreparationStarted)
	require.NotNil(t, order.Timing.ReadyAt)
	require.NotNil(t, order.Timing.OutForDeliveryAt)
	require.NotNil(t, order.Timing.DeliveredAt)
	assert.Nil(t, order.Timing.CancelledAt)
}

func TestOrder_PickupSkipsDeliveryLeg(t *testing.T) {
	order := newDeliveryOrder(StatusReady)
	order.Type = OrderTypePickup
	order.DeliveryAddress = nil

	assert.False(t, order.CanTransitionTo(StatusOutForDelivery))
	assert.True(t, order.CanTransitionTo(StatusDelivered))
}

func TestOrder_DeliveryCannotSkipDeliveryLeg(t *testing.T) {
	order := newDeliveryOrder(StatusReady)

	assert.False(t, order.CanTransitionTo(StatusDelivered))
	assert.True(t, order.CanTransitionTo(StatusOutForDelivery))
}

func TestOrder_InvalidTransitionLeavesOrderUntouched(t *testing.T) {
	order := newDeliveryOrder(StatusPending)
	now := time.Now()

	err := order.TransitionTo(StatusDelivered, now)

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, StatusPending, invalid.From)
	assert.Equal(t, StatusDelivered, invalid.To)

	assert.Equal(t, StatusPending, order.Status)
	assert.Nil(t, order.Timing.DeliveredAt)
}

func TestOrder_TerminalStatesAcceptNothing(t *testing.T) {
	all := []Status{
		StatusPending, StatusAccepted, StatusRejected, StatusPreparing,
		StatusReady, StatusOutForDelivery, StatusDelivered, StatusCancelled,
	}

	for _, terminal := range []Status{StatusRejected, StatusDelivered, StatusCancelled} {
		order := newDeliveryOrder(terminal)
		assert.True(t, terminal.IsTerminal())
		for _, target := range all {
			assert.False(t, order.CanTransitionTo(target),
				"%s -> %s should be rejected", terminal, target)
		}
	}
}

func TestOrder_CancelRefundsCompletedPayment(t *testing.T) {
	order := newDeliveryOrder(StatusPreparing)
	now := time.Now()

	require.NoError(t, order.Cancel("customer changed mind", "customer", now))

	assert.Equal(t, StatusCancelled, order.Status)
	require.NotNil(t, order.Cancellation)
	assert.Equal(t, "customer changed mind", order.Cancellation.Reason)
	assert.Equal(t, 602.25, order.Cancellation.RefundAmount)
	assert.Equal(t, RefundPending, order.Cancellation.RefundStatus)
	require.NotNil(t, order.Timing.CancelledAt)
}

func TestOrder_CancelWithoutCapturedPaymentRefundsNothing(t *testing.T) {
	order := newDeliveryOrder(StatusAccepted)
	order.Payment.Method = PaymentMethodCash
	order.Payment.Status = PaymentPending

	require.NoError(t, order.Cancel("out of stock", "operator", time.Now()))

	require.NotNil(t, order.Cancellation)
	assert.Zero(t, order.Cancellation.RefundAmount)
	assert.Equal(t, RefundNone, order.Cancellation.RefundStatus)
}

func TestOrder_CancelFromTerminalFails(t *testing.T) {
	order := newDeliveryOrder(StatusDelivered)

	err := order.Cancel("too late", "customer", time.Now())

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Nil(t, order.Cancellation)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusOutForDelivery.Valid())
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}
