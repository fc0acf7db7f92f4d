package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/checkout"
	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeCheckoutUpstream struct {
	items          []upstream.CartItem
	promos         []promo.Promotion
	lookups        []string
	methods        []upstream.PaymentMethod
	methodsErr     error
	createdOrders  []upstream.OrderInput
	clearErr       error
	cleared        bool
	createOrderErr error
	delivered      []int64
	feedbacks      []upstream.FeedbackInput
	feedbackList   []upstream.Feedback
}

func (f *fakeCheckoutUpstream) CartItems(ctx context.Context) ([]upstream.CartItem, error) {
	return f.items, nil
}

func (f *fakeCheckoutUpstream) ClearCartItems(ctx context.Context) error {
	f.cleared = true
	return f.clearErr
}

func (f *fakeCheckoutUpstream) Promotions(ctx context.Context) ([]promo.Promotion, error) {
	return f.promos, nil
}

func (f *fakeCheckoutUpstream) PromotionByCode(ctx context.Context, code string) (promo.Promotion, error) {
	f.lookups = append(f.lookups, code)
	for _, p := range f.promos {
		if p.Code == code {
			return p, nil
		}
	}
	return promo.Promotion{}, promo.ErrNotFound
}

func (f *fakeCheckoutUpstream) PaymentMethods(ctx context.Context) ([]upstream.PaymentMethod, error) {
	return f.methods, f.methodsErr
}

func (f *fakeCheckoutUpstream) CreateOrder(ctx context.Context, in upstream.OrderInput) (upstream.Order, error) {
	if f.createOrderErr != nil {
		return upstream.Order{}, f.createOrderErr
	}
	f.createdOrders = append(f.createdOrders, in)
	return upstream.Order{ID: 42, TotalAmount: in.TotalAmount, Status: in.Status}, nil
}

func (f *fakeCheckoutUpstream) Orders(ctx context.Context) ([]upstream.Order, error) {
	return nil, nil
}

func (f *fakeCheckoutUpstream) OrderByID(ctx context.Context, id int64) (upstream.Order, error) {
	return upstream.Order{ID: id}, nil
}

func (f *fakeCheckoutUpstream) ConfirmDelivery(ctx context.Context, id int64) (upstream.Order, error) {
	f.delivered = append(f.delivered, id)
	return upstream.Order{ID: id, Status: "delivered"}, nil
}

func (f *fakeCheckoutUpstream) CreateFeedback(ctx context.Context, in upstream.FeedbackInput) (upstream.Feedback, error) {
	f.feedbacks = append(f.feedbacks, in)
	return upstream.Feedback{ID: 1, Rating: in.Rating, Comment: in.Comment}, nil
}

func (f *fakeCheckoutUpstream) Feedbacks(ctx context.Context) ([]upstream.Feedback, error) {
	return f.feedbackList, nil
}

func newCheckoutService(t *testing.T, up *fakeCheckoutUpstream) *checkout.Service {
	t.Helper()
	svc, err := checkout.NewService(checkout.ServiceConfig{
		Upstream:    up,
		ShippingFee: 10000,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func sessionCtx() context.Context {
	return session.WithSession(context.Background(), session.Session{
		ID:     "s1",
		Token:  "tok",
		UserID: 9,
		Role:   "user",
	})
}

func cartWith(price int64, qty int) []upstream.CartItem {
	return []upstream.CartItem{
		{ID: 1, Quantity: qty, Product: catalog.Product{ID: 10, Price: price}},
	}
}

func percentPromo(code string, value, minOrder, cap int64) promo.Promotion {
	return promo.Promotion{
		ID:                1,
		Code:              code,
		DiscountType:      promo.TypePercentage,
		DiscountValue:     value,
		IsActive:          true,
		ValidFrom:         testNow.Add(-time.Hour),
		ValidTo:           testNow.Add(time.Hour),
		MinOrderValue:     minOrder,
		MaxDiscountAmount: cap,
	}
}

func TestNormalizePaymentMethod(t *testing.T) {
	cases := map[string]string{
		"cash":          "cash",
		"COD":           "cash",
		"card":          "card",
		"credit":        "card",
		"bank":          "bank_transfer",
		"transfer":      "bank_transfer",
		"bank_transfer": "bank_transfer",
		"paypal":        "cash",
		"":              "cash",
	}
	for raw, want := range cases {
		require.Equal(t, want, checkout.NormalizePaymentMethod(raw), "input %q", raw)
	}
}

func TestPaymentMethodsFallbackOnError(t *testing.T) {
	svc := newCheckoutService(t, &fakeCheckoutUpstream{methodsErr: errors.New("boom")})

	methods := svc.PaymentMethods(context.Background())
	require.Len(t, methods, 3)
	require.Equal(t, "cash", methods[0].Value)
	require.Equal(t, "card", methods[1].Value)
	require.Equal(t, "bank_transfer", methods[2].Value)
}

func TestPaymentMethodsNormalized(t *testing.T) {
	svc := newCheckoutService(t, &fakeCheckoutUpstream{methods: []upstream.PaymentMethod{
		{ID: 1, Name: "COD", Value: "cod"},
		{ID: 2, Name: "Visa", Value: "credit"},
	}})

	methods := svc.PaymentMethods(context.Background())
	require.Len(t, methods, 2)
	require.Equal(t, "cash", methods[0].Value)
	require.Equal(t, "card", methods[1].Value)
}

func TestApplyCodePercentageCapped(t *testing.T) {
	// subtotal 100000, 10% = 10000, capped at 5000, plus 10000 shipping
	up := &fakeCheckoutUpstream{
		items:  cartWith(100000, 1),
		promos: []promo.Promotion{percentPromo("SUMMER10", 10, 50000, 5000)},
	}
	svc := newCheckoutService(t, up)

	quote, err := svc.ApplyCode(sessionCtx(), "SUMMER10")
	require.NoError(t, err)
	require.EqualValues(t, 100000, quote.Summary.Subtotal)
	require.EqualValues(t, 5000, quote.Summary.Discount)
	require.EqualValues(t, 105000, quote.Summary.Total)
	require.NotNil(t, quote.Promotion)
}

func TestApplyCodeFixedCapped(t *testing.T) {
	// subtotal 100000, fixed 20000 capped at 15000
	p := promo.Promotion{
		ID:                2,
		Code:              "FLAT20",
		DiscountType:      promo.TypeFixed,
		DiscountValue:     20000,
		IsActive:          true,
		ValidFrom:         testNow.Add(-time.Hour),
		ValidTo:           testNow.Add(time.Hour),
		MaxDiscountAmount: 15000,
	}
	up := &fakeCheckoutUpstream{items: cartWith(100000, 1), promos: []promo.Promotion{p}}
	svc := newCheckoutService(t, up)

	quote, err := svc.ApplyCode(sessionCtx(), "FLAT20")
	require.NoError(t, err)
	require.EqualValues(t, 15000, quote.Summary.Discount)
	require.EqualValues(t, 95000, quote.Summary.Total)
}

func TestApplyCodeDistinctRejections(t *testing.T) {
	inactive := percentPromo("OFF", 10, 0, 5000)
	inactive.IsActive = false
	expired := percentPromo("OLD", 10, 0, 5000)
	expired.ValidTo = testNow.Add(-time.Minute)
	future := percentPromo("SOON", 10, 0, 5000)
	future.ValidFrom = testNow.Add(time.Minute)
	minOrder := percentPromo("BIG", 10, 500000, 5000)

	up := &fakeCheckoutUpstream{
		items:  cartWith(100000, 1),
		promos: []promo.Promotion{inactive, expired, future, minOrder},
	}
	svc := newCheckoutService(t, up)

	cases := map[string]error{
		"MISSING": promo.ErrNotFound,
		"OFF":     promo.ErrInactive,
		"OLD":     promo.ErrExpired,
		"SOON":    promo.ErrNotStarted,
		"BIG":     promo.ErrMinimumOrderUnmet,
	}
	for code, want := range cases {
		_, err := svc.ApplyCode(sessionCtx(), code)
		require.ErrorIs(t, err, want, "code %s", code)
	}
}

func TestAvailablePromotionsFiltered(t *testing.T) {
	eligible := percentPromo("YES", 10, 50000, 5000)
	tooBig := percentPromo("NO", 10, 500000, 5000)
	up := &fakeCheckoutUpstream{
		items:  cartWith(100000, 1),
		promos: []promo.Promotion{eligible, tooBig},
	}
	svc := newCheckoutService(t, up)

	promos, err := svc.AvailablePromotions(sessionCtx())
	require.NoError(t, err)
	require.Len(t, promos, 1)
	require.Equal(t, "YES", promos[0].Code)
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	up := &fakeCheckoutUpstream{
		items:  cartWith(100000, 1),
		promos: []promo.Promotion{percentPromo("SUMMER10", 10, 50000, 5000)},
	}
	svc := newCheckoutService(t, up)

	order, err := svc.PlaceOrder(sessionCtx(), checkout.Input{
		ShippingAddress: "12 Hang Bai",
		PaymentMethod:   "cod",
		PromotionCode:   "SUMMER10",
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, order.ID)
	require.Len(t, up.createdOrders, 1)

	in := up.createdOrders[0]
	require.EqualValues(t, 9, in.UserID)
	require.EqualValues(t, 105000, in.TotalAmount)
	require.Equal(t, "cash", in.PaymentMethod)
	require.Equal(t, "pending", in.Status)
	require.Equal(t, "unpaid", in.PaymentStatus)
	require.EqualValues(t, 10000, in.ShippingFee)
	require.True(t, up.cleared)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	svc := newCheckoutService(t, &fakeCheckoutUpstream{})

	_, err := svc.PlaceOrder(sessionCtx(), checkout.Input{ShippingAddress: "a"})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	svc := newCheckoutService(t, &fakeCheckoutUpstream{items: cartWith(100000, 1)})

	_, err := svc.PlaceOrder(context.Background(), checkout.Input{ShippingAddress: "a"})
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestPlaceOrderClearFailureNotFatal(t *testing.T) {
	up := &fakeCheckoutUpstream{
		items:    cartWith(100000, 1),
		clearErr: errors.New("clear failed"),
	}
	svc := newCheckoutService(t, up)

	order, err := svc.PlaceOrder(sessionCtx(), checkout.Input{ShippingAddress: "a", PaymentMethod: "cash"})
	require.NoError(t, err)
	require.EqualValues(t, 42, order.ID)
	require.True(t, up.cleared)
}

func TestPlaceOrderStalePromotionStillApplies(t *testing.T) {
	stale := percentPromo("SUMMER10", 10, 500000, 5000)
	up := &fakeCheckoutUpstream{
		items:  cartWith(100000, 1),
		promos: []promo.Promotion{stale},
	}
	svc := newCheckoutService(t, up)

	order, err := svc.PlaceOrder(sessionCtx(), checkout.Input{
		ShippingAddress: "a",
		PaymentMethod:   "cash",
		PromotionCode:   "SUMMER10",
	})
	require.NoError(t, err)
	// discount applied even though the minimum is no longer met
	require.EqualValues(t, 105000, order.TotalAmount)
}

func TestApplyCodeForwardsCodeVerbatim(t *testing.T) {
	up := &fakeCheckoutUpstream{items: cartWith(100000, 1)}
	svc := newCheckoutService(t, up)

	_, err := svc.ApplyCode(sessionCtx(), " SUMMER10 ")
	require.ErrorIs(t, err, promo.ErrNotFound)
	// codes match exactly upstream, surrounding whitespace included
	require.Equal(t, []string{" SUMMER10 "}, up.lookups)

	// blank entries are rejected before any upstream lookup
	_, err = svc.ApplyCode(sessionCtx(), "   ")
	require.Error(t, err)
	require.Len(t, up.lookups, 1)
}

func TestConfirmDelivery(t *testing.T) {
	up := &fakeCheckoutUpstream{}
	svc := newCheckoutService(t, up)

	order, err := svc.ConfirmDelivery(sessionCtx(), 7)
	require.NoError(t, err)
	require.Equal(t, "delivered", order.Status)
	require.Equal(t, []int64{7}, up.delivered)
}

func TestSubmitFeedback(t *testing.T) {
	up := &fakeCheckoutUpstream{}
	svc := newCheckoutService(t, up)

	_, err := svc.SubmitFeedback(context.Background(), checkout.FeedbackForm{ProductID: 10, Rating: 5})
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = svc.SubmitFeedback(sessionCtx(), checkout.FeedbackForm{ProductID: 10, Rating: 0})
	require.ErrorIs(t, err, checkout.ErrInvalidRating)

	_, err = svc.SubmitFeedback(sessionCtx(), checkout.FeedbackForm{ProductID: 10, Rating: 6})
	require.ErrorIs(t, err, checkout.ErrInvalidRating)

	fb, err := svc.SubmitFeedback(sessionCtx(), checkout.FeedbackForm{ProductID: 10, Rating: 4, Comment: "tasty"})
	require.NoError(t, err)
	require.Equal(t, 4, fb.Rating)
	require.Len(t, up.feedbacks, 1)
	require.EqualValues(t, 9, up.feedbacks[0].UserID)
	require.EqualValues(t, 10, up.feedbacks[0].ProductID)
}
