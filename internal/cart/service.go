package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// ErrQuantityTooLow rejects quantities below one. Quantities are never
// silently clamped; the caller must send a valid value.
var ErrQuantityTooLow = &common.AppError{
	Code:       "VALIDATION",
	Message:    "quantity must be at least 1",
	HTTPStatus: http.StatusBadRequest,
}

// Upstream is the slice of the API client the cart needs.
type Upstream interface {
	CartItems(ctx context.Context) ([]upstream.CartItem, error)
	AddCartItem(ctx context.Context, productID int64, quantity int) (upstream.CartItem, error)
	UpdateCartItem(ctx context.Context, id int64, quantity int) (upstream.CartItem, error)
	RemoveCartItem(ctx context.Context, id int64) error
	ClearCartItems(ctx context.Context) error
}

// LineView is a cart line decorated with the unit price charged right now.
type LineView struct {
	upstream.CartItem
	UnitPrice int64 `json:"unit_price"`
	LineTotal int64 `json:"line_total"`
}

// View is the cart page payload: lines plus the running totals before any
// promotion is applied.
type View struct {
	Items    []LineView      `json:"items"`
	Subtotal int64           `json:"subtotal"`
	Shipping int64           `json:"shipping_fee"`
	Total    int64           `json:"total"`
	Summary  pricing.Summary `json:"-"`
}

// Service wraps the upstream cart with local pricing.
type Service struct {
	upstream    Upstream
	shippingFee int64
	logger      zerolog.Logger
	// Now is injectable for deterministic discount windows in tests.
	Now func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Upstream    Upstream
	ShippingFee int64
	Logger      zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("cart: upstream client is required")
	}
	return &Service{
		upstream:    cfg.Upstream,
		shippingFee: cfg.ShippingFee,
		logger:      cfg.Logger,
		Now:         time.Now,
	}, nil
}

// ViewCart fetches the cart and computes its totals.
func (s *Service) ViewCart(ctx context.Context) (View, error) {
	items, err := s.upstream.CartItems(ctx)
	if err != nil {
		return View{}, fmt.Errorf("fetch cart: %w", err)
	}
	return s.buildView(items), nil
}

// Add appends a product to the cart.
func (s *Service) Add(ctx context.Context, productID int64, quantity int) (upstream.CartItem, error) {
	if quantity < 1 {
		return upstream.CartItem{}, ErrQuantityTooLow
	}
	item, err := s.upstream.AddCartItem(ctx, productID, quantity)
	if err != nil {
		return upstream.CartItem{}, fmt.Errorf("add cart item: %w", err)
	}
	return item, nil
}

// UpdateQuantity changes a line's quantity.
func (s *Service) UpdateQuantity(ctx context.Context, id int64, quantity int) (upstream.CartItem, error) {
	if quantity < 1 {
		return upstream.CartItem{}, ErrQuantityTooLow
	}
	item, err := s.upstream.UpdateCartItem(ctx, id, quantity)
	if err != nil {
		return upstream.CartItem{}, fmt.Errorf("update cart item: %w", err)
	}
	return item, nil
}

// Remove deletes a line from the cart.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.upstream.RemoveCartItem(ctx, id); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.upstream.ClearCartItems(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Lines converts cart items into pricing lines for total calculation.
func Lines(items []upstream.CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{Product: item.Product, Qty: item.Quantity})
	}
	return lines
}

func (s *Service) buildView(items []upstream.CartItem) View {
	now := s.Now()
	summary := pricing.Compute(Lines(items), s.shippingFee, nil, now)
	views := make([]LineView, 0, len(items))
	for _, item := range items {
		unit := item.Product.EffectivePriceAt(now)
		views = append(views, LineView{
			CartItem:  item,
			UnitPrice: unit,
			LineTotal: unit * int64(item.Quantity),
		})
	}
	return View{
		Items:    views,
		Subtotal: summary.Subtotal,
		Shipping: summary.Shipping,
		Total:    summary.Total,
		Summary:  summary,
	}
}
