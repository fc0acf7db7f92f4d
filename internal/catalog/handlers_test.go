package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
)

type fakeSource struct {
	products   []catalog.Product
	categories []catalog.Category
	suppliers  []catalog.Supplier
	byCategory map[int64][]catalog.Product
	calls      int
}

func (f *fakeSource) Products(ctx context.Context) ([]catalog.Product, error) {
	f.calls++
	return f.products, nil
}

func (f *fakeSource) ProductByID(ctx context.Context, id int64) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, &notFoundErr{}
}

func (f *fakeSource) ProductsByCategory(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	return f.byCategory[categoryID], nil
}

func (f *fakeSource) Categories(ctx context.Context) ([]catalog.Category, error) {
	return f.categories, nil
}

func (f *fakeSource) Suppliers(ctx context.Context) ([]catalog.Supplier, error) {
	return f.suppliers, nil
}

type notFoundErr struct{}

func (*notFoundErr) Error() string   { return "product not found" }
func (*notFoundErr) HTTPStatus() int { return http.StatusNotFound }

func ptrInt64(v int64) *int64        { return &v }
func ptrTime(t time.Time) *time.Time { return &t }

func newTestService(t *testing.T, source *fakeSource) *catalog.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Source: source,
		Cache:  catalog.NewCache(client, time.Minute),
	})
	require.NoError(t, err)
	svc.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestProductsDecoratedWithEffectivePrice(t *testing.T) {
	source := &fakeSource{products: []catalog.Product{
		{
			ID:            1,
			Name:          "Bun cha",
			Price:         60000,
			DiscountPrice: ptrInt64(50000),
			StartDiscount: ptrTime(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
			EndDiscount:   ptrTime(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)),
		},
		{ID: 2, Name: "Nem ran", Price: 40000, DiscountPrice: ptrInt64(30000)},
	}}
	handler := catalog.NewHandler(newTestService(t, source))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []catalog.ProductView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.EqualValues(t, 50000, body.Data[0].EffectivePrice)
	require.True(t, body.Data[0].OnDiscount)
	require.Equal(t, "Uncategorized", body.Data[0].CategoryLabel)
	// no window bounds, discount price alone does not apply
	require.EqualValues(t, 40000, body.Data[1].EffectivePrice)
	require.False(t, body.Data[1].OnDiscount)
}

func TestProductsSearchFilter(t *testing.T) {
	source := &fakeSource{products: []catalog.Product{
		{ID: 1, Name: "Pho bo", Price: 55000},
		{ID: 2, Name: "Pho ga", Price: 50000},
		{ID: 3, Name: "Com tam", Price: 45000},
	}}
	handler := catalog.NewHandler(newTestService(t, source))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?q=pho", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []catalog.ProductView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
}

func TestProductsListCached(t *testing.T) {
	source := &fakeSource{products: []catalog.Product{{ID: 1, Name: "Pho bo", Price: 55000}}}
	svc := newTestService(t, source)
	ctx := context.Background()

	_, err := svc.ListProducts(ctx, catalog.ListParams{})
	require.NoError(t, err)
	_, err = svc.ListProducts(ctx, catalog.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)
}

func TestProductsRejectsBadCategory(t *testing.T) {
	handler := catalog.NewHandler(newTestService(t, &fakeSource{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=abc", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductDetailNotFound(t *testing.T) {
	handler := catalog.NewHandler(newTestService(t, &fakeSource{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "99")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	handler.ProductDetail(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductsSortedByPrice(t *testing.T) {
	source := &fakeSource{products: []catalog.Product{
		{ID: 1, Name: "A", Price: 30000},
		{ID: 2, Name: "B", Price: 10000},
		{ID: 3, Name: "C", Price: 20000},
	}}
	svc := newTestService(t, source)

	views, err := svc.ListProducts(context.Background(), catalog.ListParams{Sort: "price_asc"})
	require.NoError(t, err)
	require.EqualValues(t, 10000, views[0].EffectivePrice)
	require.EqualValues(t, 30000, views[2].EffectivePrice)
}
