package pricing

import (
	"time"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/promo"
)

// Money represents a monetary value in whole currency units (VND).
type Money = int64

// Line is a cart line used for total calculation.
type Line struct {
	Product catalog.Product
	Qty     int
}

// Summary aggregates the computed order components.
type Summary struct {
	Subtotal Money
	Discount Money
	Shipping Money
	Total    Money
}

// EffectivePrice resolves the unit price actually charged for the product at
// the given instant. The discount price applies only when it is present, both
// window bounds are present, and now falls within [start, end] inclusive.
// A window with start == end is active at exactly that instant; an inverted
// window never activates. Missing or malformed data falls open to list price.
func EffectivePrice(p catalog.Product, now time.Time) Money {
	return p.EffectivePriceAt(now)
}

// DiscountActive reports whether the product's time-bounded discount applies
// at the given instant.
func DiscountActive(p catalog.Product, now time.Time) bool {
	return p.DiscountActiveAt(now)
}

// Compute calculates the order totals for the given lines, flat shipping fee
// and optional promotion. The promotion is assumed to have been validated at
// selection time; Compute applies its numbers without re-checking eligibility.
func Compute(lines []Line, shipping Money, p *promo.Promotion, now time.Time) Summary {
	var subtotal Money
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		subtotal += EffectivePrice(line.Product, now) * Money(line.Qty)
	}
	var discount Money
	if p != nil {
		switch p.DiscountType {
		case promo.TypePercentage:
			discount = subtotal * p.DiscountValue / 100
		default:
			discount = p.DiscountValue
		}
		if discount > p.MaxDiscountAmount {
			discount = p.MaxDiscountAmount
		}
		if discount < 0 {
			discount = 0
		}
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal - discount + shipping,
	}
}
