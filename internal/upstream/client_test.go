package upstream_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

func newTestClient(t *testing.T, handler http.Handler) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := upstream.NewClient(upstream.Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := upstream.NewClient(upstream.Config{})
	require.Error(t, err)
}

func TestProductsDecodesWindowsAndRelations(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"_id": 1,
				"name": "Pho bo",
				"price": 55000,
				"discount_price": 45000,
				"start_discount": "2025-06-01T00:00:00Z",
				"end_discount": "2025-06-30T00:00:00Z",
				"category": {"_id": 3, "name": "Noodles"},
				"supplier": {"_id": 7, "name": "Kitchen A"}
			},
			{
				"_id": 2,
				"name": "Tra da",
				"price": 10000,
				"start_discount": "",
				"end_discount": "",
				"category": "broken",
				"supplier": null
			}
		]`))
	}))

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	withWindow := products[0]
	require.NotNil(t, withWindow.DiscountPrice)
	require.EqualValues(t, 45000, *withWindow.DiscountPrice)
	require.NotNil(t, withWindow.StartDiscount)
	require.NotNil(t, withWindow.EndDiscount)
	require.Equal(t, "Noodles", withWindow.CategoryName())
	require.Equal(t, "Kitchen A", withWindow.SupplierName())

	bare := products[1]
	require.Nil(t, bare.DiscountPrice)
	require.Nil(t, bare.StartDiscount)
	require.Nil(t, bare.EndDiscount)
	require.Equal(t, "Uncategorized", bare.CategoryName())
	require.Equal(t, "Unknown supplier", bare.SupplierName())
}

func TestBearerTokenForwardedFromSession(t *testing.T) {
	var got string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	ctx := session.WithSession(context.Background(), session.Session{Token: "tok-123"})
	_, err := client.Orders(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", got)
}

func TestPromotionByCodeMapsNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/promotions/code/NOPE", r.URL.Path)
		http.Error(w, `{"message":"promotion not found"}`, http.StatusNotFound)
	}))

	_, err := client.PromotionByCode(context.Background(), "NOPE")
	require.ErrorIs(t, err, promo.ErrNotFound)
}

func TestPromotionByCodeFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"_id": 5,
			"code": "SUMMER10",
			"discountType": "percentage",
			"discountValue": 10,
			"isActive": true,
			"validFrom": "2025-06-01T00:00:00Z",
			"validTo": "2025-06-30T23:59:59Z",
			"min_order_value": 50000,
			"max_discount_amount": 5000
		}`))
	}))

	p, err := client.PromotionByCode(context.Background(), "SUMMER10")
	require.NoError(t, err)
	require.Equal(t, "SUMMER10", p.Code)
	require.Equal(t, promo.TypePercentage, p.DiscountType)
	require.EqualValues(t, 5000, p.MaxDiscountAmount)
}

func TestUpstreamErrorCarriesStatusAndMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}))

	_, err := client.Orders(context.Background())
	require.Error(t, err)
	var apiErr *upstream.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "token expired", apiErr.Message)
	require.True(t, upstream.IsUnauthorized(err))
}

func TestCreateOrderSendsPayload(t *testing.T) {
	var gotBody []byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id": 42, "totalAmount": 105000, "status": "pending", "createdAt": "2025-06-15T10:00:00Z"}`))
	}))

	order, err := client.CreateOrder(context.Background(), upstream.OrderInput{
		UserID:          9,
		TotalAmount:     105000,
		Status:          "pending",
		ShippingAddress: "12 Hang Bai",
		ShippingFee:     10000,
		PaymentMethod:   "cash",
		PaymentStatus:   "unpaid",
		OrderItems:      []upstream.OrderItemInput{{ProductID: 1, Quantity: 2}},
		PromotionCode:   "SUMMER10",
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, order.ID)
	require.EqualValues(t, 105000, order.TotalAmount)
	require.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), order.CreatedAt)
	require.Contains(t, string(gotBody), `"paymentMethod":"cash"`)
	require.Contains(t, string(gotBody), `"promotion_code":"SUMMER10"`)
}

func TestCreateFeedbackSendsPayload(t *testing.T) {
	var gotBody []byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/feedbacks", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"_id": 11,
			"rating": 4,
			"comment": "tasty",
			"product": {"_id": 1, "name": "Pho bo", "price": 55000},
			"createdAt": "2025-06-16T08:00:00Z"
		}`))
	}))

	fb, err := client.CreateFeedback(context.Background(), upstream.FeedbackInput{
		ProductID: 1,
		Rating:    4,
		Comment:   "tasty",
		UserID:    9,
	})
	require.NoError(t, err)
	require.EqualValues(t, 11, fb.ID)
	require.Equal(t, "Pho bo", fb.Product.Name)
	require.Contains(t, string(gotBody), `"productId":1`)
	require.Contains(t, string(gotBody), `"userId":9`)
}

func TestConfirmDeliveryPatchesOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/orders/7/deliver", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id": 7, "status": "delivered"}`))
	}))

	order, err := client.ConfirmDelivery(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "delivered", order.Status)
}

func TestDeleteDiscardsBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/cart-items/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.RemoveCartItem(context.Background(), 7))
}
