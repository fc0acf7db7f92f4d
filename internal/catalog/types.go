package catalog

import (
	"strings"
	"time"
)

// FallbackCategoryName is rendered when a product carries no usable category.
const FallbackCategoryName = "Uncategorized"

// FallbackSupplierName is rendered when a product carries no usable supplier.
const FallbackSupplierName = "Unknown supplier"

// Category describes a product category as served by the upstream API.
type Category struct {
	ID       int64   `json:"_id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Image    *string `json:"image,omitempty"`
	ParentID *int64  `json:"parent_id,omitempty"`
}

// Supplier describes a product supplier.
type Supplier struct {
	ID      int64  `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Product is the canonical product shape used across the gateway. Category
// and Supplier are explicitly optional; callers must go through the fallback
// accessors instead of checking the pointers ad hoc.
type Product struct {
	ID                int64      `json:"_id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Price             int64      `json:"price"`
	Description       string     `json:"description"`
	DescriptionDetail *string    `json:"description_detail,omitempty"`
	Image             string     `json:"image"`
	Unit              string     `json:"unit"`
	Available         bool       `json:"available"`
	QuantityInStock   int        `json:"quantity_in_stock"`
	DiscountPrice     *int64     `json:"discount_price,omitempty"`
	StartDiscount     *time.Time `json:"start_discount,omitempty"`
	EndDiscount       *time.Time `json:"end_discount,omitempty"`
	Category          *Category  `json:"category,omitempty"`
	Supplier          *Supplier  `json:"supplier,omitempty"`
	AverageRating     *float64   `json:"averageRating,omitempty"`
	TotalFeedbacks    *int       `json:"totalFeedbacks,omitempty"`
}

// CategoryName returns the category label or the canonical fallback.
func (p Product) CategoryName() string {
	if p.Category == nil || strings.TrimSpace(p.Category.Name) == "" {
		return FallbackCategoryName
	}
	return p.Category.Name
}

// SupplierName returns the supplier label or the canonical fallback.
func (p Product) SupplierName() string {
	if p.Supplier == nil || strings.TrimSpace(p.Supplier.Name) == "" {
		return FallbackSupplierName
	}
	return p.Supplier.Name
}

// DiscountActiveAt reports whether the product's time-bounded discount
// applies at the given instant. A discount applies only when the discount
// price and both window bounds are present and now falls within
// [start, end] inclusive. A window with start == end is active at exactly
// that instant; an inverted window never activates.
func (p Product) DiscountActiveAt(now time.Time) bool {
	if p.DiscountPrice == nil || p.StartDiscount == nil || p.EndDiscount == nil {
		return false
	}
	return !now.Before(*p.StartDiscount) && !now.After(*p.EndDiscount)
}

// EffectivePriceAt resolves the unit price actually charged at the given
// instant. Missing or malformed discount data falls open to the list price.
func (p Product) EffectivePriceAt(now time.Time) int64 {
	if p.DiscountActiveAt(now) {
		return *p.DiscountPrice
	}
	return p.Price
}

// ParseDiscountBound parses an upstream discount window bound. Upstream
// serialises the bounds as RFC3339 strings; anything unparsable is treated as
// an absent bound so the discount simply never activates.
func ParseDiscountBound(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t
		}
	}
	return nil
}
