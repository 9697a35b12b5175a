package pricing

import (
	"math"

	"github.com/bekzatkz/dastarhan/internal/domain"
)

const DefaultTaxRate = 0.05

// Calculator computes order money totals. It does no I/O and never
// returns a negative total.
type Calculator struct {
	taxRate     float64
	deliveryFee float64
}

func NewCalculator(taxRate, deliveryFee float64) *Calculator {
	if taxRate <= 0 {
		taxRate = DefaultTaxRate
	}
	return &Calculator{taxRate: taxRate, deliveryFee: deliveryFee}
}

// Quote prices the given line items. The delivery fee applies to
// delivery orders only. Rounding happens once per output figure, never
// per line, so long carts do not accumulate drift.
func (c *Calculator) Quote(items []domain.LineItem, orderType domain.OrderType, discount float64) (domain.Pricing, error) {
	if len(items) == 0 {
		return domain.Pricing{}, domain.ErrEmptyOrder
	}

	subtotal := 0.0
	for _, item := range items {
		if item.Quantity < 1 {
			return domain.Pricing{}, domain.ErrInvalidQuantity
		}
		subtotal += LineTotal(item)
	}

	tax := subtotal * c.taxRate

	fee := 0.0
	if orderType == domain.OrderTypeDelivery {
		fee = c.deliveryFee
	}

	total := Round2(subtotal + tax + fee - discount)
	if discount < 0 || total < 0 {
		return domain.Pricing{}, domain.ErrInvalidDiscount
	}

	return domain.Pricing{
		Subtotal:    Round2(subtotal),
		Tax:         Round2(tax),
		DeliveryFee: Round2(fee),
		Discount:    Round2(discount),
		Total:       total,
	}, nil
}

// LineTotal is the unrounded price of one line: (unit price + add-ons)
// times quantity.
func LineTotal(item domain.LineItem) float64 {
	unit := item.UnitPrice
	for _, a := range item.AddOns {
		unit += a.Price
	}
	return unit * float64(item.Quantity)
}

// Round2 rounds half-up to two decimals.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
