package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// Canonical payment method identifiers sent to the upstream API.
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
)

// ErrEmptyCart rejects checkout with nothing to order.
var ErrEmptyCart = &common.AppError{
	Code:       "EMPTY_CART",
	Message:    "cart is empty",
	HTTPStatus: http.StatusBadRequest,
}

// ErrInvalidRating rejects feedback outside the 1 to 5 star range.
var ErrInvalidRating = &common.AppError{
	Code:       "VALIDATION",
	Message:    "rating must be between 1 and 5",
	HTTPStatus: http.StatusBadRequest,
}

// Upstream is the slice of the API client checkout needs.
type Upstream interface {
	CartItems(ctx context.Context) ([]upstream.CartItem, error)
	ClearCartItems(ctx context.Context) error
	Promotions(ctx context.Context) ([]promo.Promotion, error)
	PromotionByCode(ctx context.Context, code string) (promo.Promotion, error)
	PaymentMethods(ctx context.Context) ([]upstream.PaymentMethod, error)
	CreateOrder(ctx context.Context, in upstream.OrderInput) (upstream.Order, error)
	Orders(ctx context.Context) ([]upstream.Order, error)
	OrderByID(ctx context.Context, id int64) (upstream.Order, error)
	ConfirmDelivery(ctx context.Context, id int64) (upstream.Order, error)
	CreateFeedback(ctx context.Context, in upstream.FeedbackInput) (upstream.Feedback, error)
	Feedbacks(ctx context.Context) ([]upstream.Feedback, error)
}

// FeedbackForm is the rating a customer leaves on a delivered product.
type FeedbackForm struct {
	ProductID int64  `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Input is the order placement payload.
type Input struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"paymentMethod"`
	PromotionCode   string `json:"promotion_code"`
}

// Quote previews the totals for the current cart and an optional promotion.
type Quote struct {
	Summary   pricing.Summary  `json:"summary"`
	Promotion *promo.Promotion `json:"promotion,omitempty"`
}

// Service drives the checkout flow against the upstream API.
type Service struct {
	upstream    Upstream
	shippingFee int64
	logger      zerolog.Logger
	// Now is injectable for deterministic promotion windows in tests.
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
		return nil, errors.New("checkout: upstream client is required")
	}
	return &Service{
		upstream:    cfg.Upstream,
		shippingFee: cfg.ShippingFee,
		logger:      cfg.Logger,
		Now:         time.Now,
	}, nil
}

// PaymentMethods returns the accepted payment methods with canonical values.
// When the upstream listing is unavailable the static defaults keep the
// checkout form usable.
func (s *Service) PaymentMethods(ctx context.Context) []upstream.PaymentMethod {
	methods, err := s.upstream.PaymentMethods(ctx)
	if err != nil || len(methods) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("payment methods unavailable, using defaults")
		}
		return defaultPaymentMethods()
	}
	out := make([]upstream.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		m.Value = NormalizePaymentMethod(m.Value)
		out = append(out, m)
	}
	return out
}

// NormalizePaymentMethod folds upstream payment labels onto the canonical
// identifiers. Unknown values fall back to cash.
func NormalizePaymentMethod(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash", "cod":
		return PaymentCash
	case "card", "credit":
		return PaymentCard
	case "bank", "transfer", "bank_transfer":
		return PaymentBankTransfer
	default:
		return PaymentCash
	}
}

// AvailablePromotions lists the promotions the current cart qualifies for.
func (s *Service) AvailablePromotions(ctx context.Context) ([]promo.Promotion, error) {
	items, err := s.upstream.CartItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	promos, err := s.upstream.Promotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	now := s.Now()
	subtotal := pricing.Compute(cart.Lines(items), 0, nil, now).Subtotal
	return promo.Applicable(promos, subtotal, now), nil
}

// ApplyCode validates a promotion code against the current cart and returns
// the resulting quote. Each rejection reason maps to a distinct error so the
// form can explain exactly why a code failed. Codes match exactly: the entry
// is sent upstream as typed, whitespace included.
func (s *Service) ApplyCode(ctx context.Context, code string) (Quote, error) {
	if strings.TrimSpace(code) == "" {
		return Quote{}, &common.AppError{Code: "VALIDATION", Message: "promotion code is required", HTTPStatus: http.StatusBadRequest}
	}
	items, err := s.upstream.CartItems(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch cart: %w", err)
	}
	p, err := s.upstream.PromotionByCode(ctx, code)
	if err != nil {
		obs.PromotionRejected(reasonFor(err))
		return Quote{}, promoError(err)
	}
	now := s.Now()
	lines := cart.Lines(items)
	subtotal := pricing.Compute(lines, 0, nil, now).Subtotal
	if err := p.Validate(subtotal, now); err != nil {
		obs.PromotionRejected(reasonFor(err))
		return Quote{}, promoError(err)
	}
	obs.PromotionApplied()
	return Quote{
		Summary:   pricing.Compute(lines, s.shippingFee, &p, now),
		Promotion: &p,
	}, nil
}

// QuoteCart previews the totals without a promotion.
func (s *Service) QuoteCart(ctx context.Context) (Quote, error) {
	items, err := s.upstream.CartItems(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch cart: %w", err)
	}
	return Quote{Summary: pricing.Compute(cart.Lines(items), s.shippingFee, nil, s.Now())}, nil
}

// PlaceOrder computes the final totals, creates the order upstream, and then
// clears the cart. A promotion selected earlier is applied as-is; if it went
// stale between selection and submit that is logged, not blocked. A cart
// clear failure after a created order is logged, not surfaced.
func (s *Service) PlaceOrder(ctx context.Context, in Input) (upstream.Order, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return upstream.Order{}, session.ErrNotAuthenticated
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return upstream.Order{}, &common.AppError{Code: "VALIDATION", Message: "shipping address is required", HTTPStatus: http.StatusBadRequest}
	}
	items, err := s.upstream.CartItems(ctx)
	if err != nil {
		return upstream.Order{}, fmt.Errorf("fetch cart: %w", err)
	}
	if len(items) == 0 {
		return upstream.Order{}, ErrEmptyCart
	}

	now := s.Now()
	lines := cart.Lines(items)
	var applied *promo.Promotion
	if strings.TrimSpace(in.PromotionCode) != "" {
		p, err := s.upstream.PromotionByCode(ctx, in.PromotionCode)
		if err != nil {
			return upstream.Order{}, promoError(err)
		}
		subtotal := pricing.Compute(lines, 0, nil, now).Subtotal
		if err := p.Validate(subtotal, now); err != nil {
			s.logger.Warn().Str("code", in.PromotionCode).Err(err).Msg("promotion stale at submit, applying anyway")
		}
		applied = &p
	}
	summary := pricing.Compute(lines, s.shippingFee, applied, now)

	orderItems := make([]upstream.OrderItemInput, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, upstream.OrderItemInput{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	input := upstream.OrderInput{
		UserID:          sess.UserID,
		TotalAmount:     summary.Total,
		Status:          "pending",
		ShippingAddress: in.ShippingAddress,
		ShippingFee:     summary.Shipping,
		PaymentMethod:   NormalizePaymentMethod(in.PaymentMethod),
		PaymentStatus:   "unpaid",
		OrderItems:      orderItems,
		PromotionCode:   in.PromotionCode,
	}
	order, err := s.upstream.CreateOrder(ctx, input)
	if err != nil {
		return upstream.Order{}, fmt.Errorf("create order: %w", err)
	}
	obs.OrderPlaced()

	if err := s.upstream.ClearCartItems(ctx); err != nil {
		s.logger.Warn().Int64("order_id", order.ID).Err(err).Msg("cart clear after order failed")
	}
	return order, nil
}

// Orders lists the caller's orders.
func (s *Service) Orders(ctx context.Context) ([]upstream.Order, error) {
	orders, err := s.upstream.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	return orders, nil
}

// OrderByID fetches one order for the tracking page.
func (s *Service) OrderByID(ctx context.Context, id int64) (upstream.Order, error) {
	order, err := s.upstream.OrderByID(ctx, id)
	if err != nil {
		return upstream.Order{}, fmt.Errorf("fetch order: %w", err)
	}
	return order, nil
}

// ConfirmDelivery acknowledges receipt of a shipped order. The upstream
// flips the order to delivered, which unlocks leaving feedback on its items.
func (s *Service) ConfirmDelivery(ctx context.Context, id int64) (upstream.Order, error) {
	order, err := s.upstream.ConfirmDelivery(ctx, id)
	if err != nil {
		return upstream.Order{}, fmt.Errorf("confirm delivery: %w", err)
	}
	return order, nil
}

// SubmitFeedback records a product rating for the session holder.
func (s *Service) SubmitFeedback(ctx context.Context, form FeedbackForm) (upstream.Feedback, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return upstream.Feedback{}, session.ErrNotAuthenticated
	}
	if form.Rating < 1 || form.Rating > 5 {
		return upstream.Feedback{}, ErrInvalidRating
	}
	if form.ProductID < 1 {
		return upstream.Feedback{}, &common.AppError{Code: "VALIDATION", Message: "productId is required", HTTPStatus: http.StatusBadRequest}
	}
	fb, err := s.upstream.CreateFeedback(ctx, upstream.FeedbackInput{
		ProductID: form.ProductID,
		Rating:    form.Rating,
		Comment:   form.Comment,
		UserID:    sess.UserID,
	})
	if err != nil {
		return upstream.Feedback{}, fmt.Errorf("create feedback: %w", err)
	}
	return fb, nil
}

// Feedbacks lists the caller's rating history.
func (s *Service) Feedbacks(ctx context.Context) ([]upstream.Feedback, error) {
	feedbacks, err := s.upstream.Feedbacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feedbacks: %w", err)
	}
	return feedbacks, nil
}

func defaultPaymentMethods() []upstream.PaymentMethod {
	return []upstream.PaymentMethod{
		{ID: 1, Name: "Cash on delivery", Value: PaymentCash},
		{ID: 2, Name: "Credit or debit card", Value: PaymentCard},
		{ID: 3, Name: "Bank transfer", Value: PaymentBankTransfer},
	}
}

func promoError(err error) error {
	status := http.StatusUnprocessableEntity
	code := "PROMO_INVALID"
	message := "promotion cannot be applied"
	switch {
	case errors.Is(err, promo.ErrNotFound):
		status = http.StatusNotFound
		code = "PROMO_NOT_FOUND"
		message = "promotion code not found"
	case errors.Is(err, promo.ErrInactive):
		code = "PROMO_INACTIVE"
		message = "promotion is not active"
	case errors.Is(err, promo.ErrNotStarted):
		code = "PROMO_NOT_STARTED"
		message = "promotion has not started yet"
	case errors.Is(err, promo.ErrExpired):
		code = "PROMO_EXPIRED"
		message = "promotion has expired"
	case errors.Is(err, promo.ErrMinimumOrderUnmet):
		code = "PROMO_MIN_ORDER"
		message = "order subtotal is below the promotion minimum"
	default:
		return err
	}
	return &common.AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, promo.ErrNotFound):
		return "not_found"
	case errors.Is(err, promo.ErrInactive):
		return "inactive"
	case errors.Is(err, promo.ErrNotStarted):
		return "not_started"
	case errors.Is(err, promo.ErrExpired):
		return "expired"
	case errors.Is(err, promo.ErrMinimumOrderUnmet):
		return "min_order"
	default:
		return "error"
	}
}
