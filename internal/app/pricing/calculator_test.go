package pricing

import (
	"testing"

	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator_Quote(t *testing.T) {
	calc := NewCalculator(0.05, 30)

	tests := []struct {
		name      string
		items     []domain.LineItem
		orderType domain.OrderType
		discount  float64
		want      domain.Pricing
		wantErr   error
	}{
		{
			name: "delivery order with tax and fee",
			items: []domain.LineItem{
				{UnitPrice: 250, Quantity: 2},
				{UnitPrice: 45, Quantity: 1},
			},
			orderType: domain.OrderTypeDelivery,
			want: domain.Pricing{
				Subtotal:    545,
				Tax:         27.25,
				DeliveryFee: 30,
				Total:       602.25,
			},
		},
		{
			name: "pickup order has no delivery fee",
			items: []domain.LineItem{
				{UnitPrice: 100, Quantity: 1},
			},
			orderType: domain.OrderTypePickup,
			want: domain.Pricing{
				Subtotal: 100,
				Tax:      5,
				Total:    105,
			},
		},
		{
			name: "discount reduces total",
			items: []domain.LineItem{
				{UnitPrice: 200, Quantity: 1},
			},
			orderType: domain.OrderTypePickup,
			discount:  10,
			want: domain.Pricing{
				Subtotal: 200,
				Tax:      10,
				Discount: 10,
				Total:    200,
			},
		},
		{
			name: "add-ons are priced per unit",
			items: []domain.LineItem{
				{UnitPrice: 50, Quantity: 2, AddOns: []domain.AddOn{{Name: "cheese", Price: 5}}},
			},
			orderType: domain.OrderTypePickup,
			want: domain.Pricing{
				Subtotal: 110,
				Tax:      5.5,
				Total:    115.5,
			},
		},
		{
			name:      "empty cart rejected",
			items:     nil,
			orderType: domain.OrderTypePickup,
			wantErr:   domain.ErrEmptyOrder,
		},
		{
			name: "zero quantity rejected",
			items: []domain.LineItem{
				{UnitPrice: 50, Quantity: 0},
			},
			orderType: domain.OrderTypePickup,
			wantErr:   domain.ErrInvalidQuantity,
		},
		{
			name: "discount larger than order rejected",
			items: []domain.LineItem{
				{UnitPrice: 10, Quantity: 1},
			},
			orderType: domain.OrderTypePickup,
			discount:  100,
			wantErr:   domain.ErrInvalidDiscount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Quote(tt.items, tt.orderType, tt.discount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_RoundsOnceNotPerLine(t *testing.T) {
	calc := NewCalculator(0.05, 0)

	// Ten lines of 1.009 round to 1.01 each if rounded per line, giving
	// a subtotal of 10.10. A single final rounding keeps 10.09.
	items := make([]domain.LineItem, 10)
	for i := range items {
		items[i] = domain.LineItem{UnitPrice: 1.009, Quantity: 1}
	}

	got, err := calc.Quote(items, domain.OrderTypePickup, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10.09, got.Subtotal, 1e-9)
	assert.InDelta(t, 10.59, got.Total, 1e-9)
}

func TestRound2_HalfUp(t *testing.T) {
	// 0.125 is exactly representable, so this is a true half case.
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 0.12, Round2(0.124))
	assert.Equal(t, 602.25, Round2(602.25))
	assert.Equal(t, 0.0, Round2(0))
}

func TestCalculator_DefaultTaxRate(t *testing.T) {
	calc := NewCalculator(0, 0)

	got, err := calc.Quote([]domain.LineItem{{UnitPrice: 100, Quantity: 1}}, domain.OrderTypePickup, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Tax)
}
