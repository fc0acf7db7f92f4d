package admin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/admin"
	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

type fakeAdminUpstream struct {
	createdProducts   []upstream.ProductInput
	createdPromotions []upstream.PromotionInput
	toggled           []int64
	deletedUsers      []int64
	confirmedOrders   []int64
	notifications     []upstream.Notification
}

func (f *fakeAdminUpstream) CreateProduct(ctx context.Context, in upstream.ProductInput) (catalog.Product, error) {
	f.createdProducts = append(f.createdProducts, in)
	return catalog.Product{ID: 1, Name: in.Name, Price: in.Price}, nil
}

func (f *fakeAdminUpstream) UpdateProduct(ctx context.Context, id int64, in upstream.ProductInput) (catalog.Product, error) {
	return catalog.Product{ID: id, Name: in.Name}, nil
}

func (f *fakeAdminUpstream) DeleteProduct(ctx context.Context, id int64) error { return nil }

func (f *fakeAdminUpstream) CreateCategory(ctx context.Context, in upstream.CategoryInput) (catalog.Category, error) {
	return catalog.Category{ID: 1, Name: in.Name}, nil
}

func (f *fakeAdminUpstream) UpdateCategory(ctx context.Context, id int64, in upstream.CategoryInput) (catalog.Category, error) {
	return catalog.Category{ID: id, Name: in.Name}, nil
}

func (f *fakeAdminUpstream) DeleteCategory(ctx context.Context, id int64) error { return nil }

func (f *fakeAdminUpstream) CreateSupplier(ctx context.Context, in upstream.SupplierInput) (catalog.Supplier, error) {
	return catalog.Supplier{ID: 1, Name: in.Name}, nil
}

func (f *fakeAdminUpstream) UpdateSupplier(ctx context.Context, id int64, in upstream.SupplierInput) (catalog.Supplier, error) {
	return catalog.Supplier{ID: id, Name: in.Name}, nil
}

func (f *fakeAdminUpstream) DeleteSupplier(ctx context.Context, id int64) error { return nil }

func (f *fakeAdminUpstream) Promotions(ctx context.Context) ([]promo.Promotion, error) {
	return nil, nil
}

func (f *fakeAdminUpstream) PromotionByID(ctx context.Context, id int64) (promo.Promotion, error) {
	return promo.Promotion{ID: id}, nil
}

func (f *fakeAdminUpstream) CreatePromotion(ctx context.Context, in upstream.PromotionInput) (promo.Promotion, error) {
	f.createdPromotions = append(f.createdPromotions, in)
	return promo.Promotion{ID: 1, Code: in.Code}, nil
}

func (f *fakeAdminUpstream) UpdatePromotion(ctx context.Context, id int64, in upstream.PromotionInput) (promo.Promotion, error) {
	return promo.Promotion{ID: id, Code: in.Code}, nil
}

func (f *fakeAdminUpstream) DeletePromotion(ctx context.Context, id int64) error { return nil }

func (f *fakeAdminUpstream) TogglePromotion(ctx context.Context, id int64) (promo.Promotion, error) {
	f.toggled = append(f.toggled, id)
	return promo.Promotion{ID: id, IsActive: true}, nil
}

func (f *fakeAdminUpstream) Users(ctx context.Context) ([]upstream.User, error) { return nil, nil }

func (f *fakeAdminUpstream) UserByID(ctx context.Context, id int64) (upstream.User, error) {
	return upstream.User{ID: id}, nil
}

func (f *fakeAdminUpstream) CreateUser(ctx context.Context, in upstream.UserInput) (upstream.User, error) {
	return upstream.User{ID: 1, Email: in.Email}, nil
}

func (f *fakeAdminUpstream) UpdateUser(ctx context.Context, id int64, in upstream.UserInput) (upstream.User, error) {
	return upstream.User{ID: id, Email: in.Email}, nil
}

func (f *fakeAdminUpstream) DeleteUser(ctx context.Context, id int64) error {
	f.deletedUsers = append(f.deletedUsers, id)
	return nil
}

func (f *fakeAdminUpstream) ConfirmOrder(ctx context.Context, id int64) (upstream.Order, error) {
	f.confirmedOrders = append(f.confirmedOrders, id)
	return upstream.Order{ID: id, Status: "confirmed"}, nil
}

func (f *fakeAdminUpstream) Notifications(ctx context.Context) ([]upstream.Notification, error) {
	return f.notifications, nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateBrowseCache(ctx context.Context) error {
	f.calls++
	return nil
}

func newAdminHandler(t *testing.T, up *fakeAdminUpstream, cache *fakeInvalidator) *admin.Handler {
	t.Helper()
	h, err := admin.NewHandler(admin.HandlerConfig{Upstream: up, Cache: cache})
	require.NoError(t, err)
	return h
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateProductValid(t *testing.T) {
	up := &fakeAdminUpstream{}
	cache := &fakeInvalidator{}
	h := newAdminHandler(t, up, cache)

	body := `{
		"name": "Pho bo",
		"price": 55000,
		"unit": "bowl",
		"slug": "pho-bo",
		"category": 3,
		"supplier": 7,
		"quantity_in_stock": 10,
		"available": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateProduct(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, up.createdProducts, 1)
	require.Equal(t, 1, cache.calls)
}

func TestCreateProductValidationRejected(t *testing.T) {
	up := &fakeAdminUpstream{}
	h := newAdminHandler(t, up, nil)

	// missing name, non-positive price
	body := `{"price": 0, "unit": "bowl", "slug": "x", "category": 3, "supplier": 7}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateProduct(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, up.createdProducts)
	require.Contains(t, rec.Body.String(), "VALIDATION")
}

func TestCreatePromotionRejectsUnknownType(t *testing.T) {
	up := &fakeAdminUpstream{}
	h := newAdminHandler(t, up, nil)

	body := `{
		"code": "SUMMER10",
		"discountValue": 10,
		"discountType": "bogus",
		"validFrom": "2025-06-01T00:00:00Z",
		"validTo": "2025-06-30T00:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreatePromotion(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, up.createdPromotions)
}

func TestTogglePromotion(t *testing.T) {
	up := &fakeAdminUpstream{}
	h := newAdminHandler(t, up, nil)

	req := withID(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/promotions/5/toggle", nil), "5")
	rec := httptest.NewRecorder()
	h.TogglePromotion(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{5}, up.toggled)
}

func TestCreateUserRequiresPassword(t *testing.T) {
	h := newAdminHandler(t, &fakeAdminUpstream{}, nil)

	body := `{"name": "New User", "email": "u@example.com", "role": "user"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateUser(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmOrder(t *testing.T) {
	up := &fakeAdminUpstream{}
	h := newAdminHandler(t, up, nil)

	req := withID(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/12/confirm", nil), "12")
	rec := httptest.NewRecorder()
	h.ConfirmOrder(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{12}, up.confirmedOrders)
	require.Contains(t, rec.Body.String(), "confirmed")
}

func TestNotifications(t *testing.T) {
	up := &fakeAdminUpstream{notifications: []upstream.Notification{{ID: 3, Message: "New order placed", Status: "unread"}}}
	h := newAdminHandler(t, up, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications", nil)
	rec := httptest.NewRecorder()
	h.Notifications(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "New order placed")
}

func TestDeleteUserBadID(t *testing.T) {
	up := &fakeAdminUpstream{}
	h := newAdminHandler(t, up, nil)

	req := withID(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/abc", nil), "abc")
	rec := httptest.NewRecorder()
	h.DeleteUser(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, up.deletedUsers)
}
