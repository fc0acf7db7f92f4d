package promo

import (
	"errors"
	"time"
)

// Discount types accepted by the upstream API.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

var (
	// ErrNotFound is returned when no promotion matches the entered code.
	ErrNotFound = errors.New("promotion not found")
	// ErrInactive is returned when the promotion is disabled.
	ErrInactive = errors.New("promotion not active")
	// ErrNotStarted is returned before the validity window opens.
	ErrNotStarted = errors.New("promotion not started")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("promotion expired")
	// ErrMinimumOrderUnmet indicates the order subtotal is below the promotion requirement.
	ErrMinimumOrderUnmet = errors.New("promotion minimum order value not met")
)

// Promotion is a named discount rule applied at most once per order. Usage
// counters are enforced upstream; the gateway only displays them.
type Promotion struct {
	ID                int64     `json:"_id"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     int64     `json:"discountValue"`
	ValidFrom         time.Time `json:"validFrom"`
	ValidTo           time.Time `json:"validTo"`
	IsActive          bool      `json:"isActive"`
	MinOrderValue     int64     `json:"min_order_value"`
	MaxDiscountAmount int64     `json:"max_discount_amount"`
	UsageLimit        int       `json:"usage_limit"`
	UsageCount        int       `json:"usage_count"`
}

// Validate reports why the promotion cannot be applied to an order with the
// given subtotal at the given instant. Both window bounds are inclusive.
func (p Promotion) Validate(subtotal int64, now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if now.Before(p.ValidFrom) {
		return ErrNotStarted
	}
	if now.After(p.ValidTo) {
		return ErrExpired
	}
	if subtotal < p.MinOrderValue {
		return ErrMinimumOrderUnmet
	}
	return nil
}

// IsApplicable reports whether the promotion qualifies for the order.
func (p Promotion) IsApplicable(subtotal int64, now time.Time) bool {
	return p.Validate(subtotal, now) == nil
}

// Applicable filters the catalog of promotions down to those that qualify for
// the given subtotal at the given instant, preserving input order.
func Applicable(promos []Promotion, subtotal int64, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if p.IsApplicable(subtotal, now) {
			out = append(out, p)
		}
	}
	return out
}

// FindByCode locates a promotion by exact, case-sensitive code match.
func FindByCode(promos []Promotion, code string) (Promotion, error) {
	for _, p := range promos {
		if p.Code == code {
			return p, nil
		}
	}
	return Promotion{}, ErrNotFound
}
