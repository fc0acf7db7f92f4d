package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Cache keys for the browse surfaces. Admin mutations invalidate all three.
const (
	CacheKeyProducts   = "catalog:products"
	CacheKeyCategories = "catalog:categories"
	CacheKeySuppliers  = "catalog:suppliers"
)

// Source provides raw catalog data, typically the upstream API client.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id int64) (Product, error)
	ProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	Suppliers(ctx context.Context) ([]Supplier, error)
}

// ProductView is a product decorated with the price a buyer would pay right
// now and the labels the storefront renders.
type ProductView struct {
	Product
	EffectivePrice int64  `json:"effective_price"`
	OnDiscount     bool   `json:"on_discount"`
	CategoryLabel  string `json:"category_label"`
	SupplierLabel  string `json:"supplier_label"`
}

// ListParams captures browse filters.
type ListParams struct {
	Query      string
	CategoryID *int64
	Sort       string
}

// Service assembles browse views on top of the upstream catalog, with a
// short-lived Redis cache in front of the product and category listings.
type Service struct {
	source Source
	cache  *Cache
	// Now is injectable for deterministic discount windows in tests.
	Now func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source Source
	Cache  *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	return &Service{source: cfg.Source, cache: cfg.Cache, Now: time.Now}, nil
}

// ParseListParams normalises raw query values into typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Query: strings.TrimSpace(values.Get("q")),
		Sort:  normalizeSort(values.Get("sort")),
	}
	if v := strings.TrimSpace(values.Get("category")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return params, badRequest("category", "category must be a positive integer", err)
		}
		params.CategoryID = &id
	}
	return params, nil
}

// ListProducts returns the decorated product list, filtered and sorted.
func (s *Service) ListProducts(ctx context.Context, params ListParams) ([]ProductView, error) {
	products, err := s.allProducts(ctx, params.CategoryID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	views := make([]ProductView, 0, len(products))
	query := strings.ToLower(params.Query)
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		views = append(views, s.view(p, now))
	}
	sortViews(views, params.Sort)
	return views, nil
}

// GetProduct returns the decorated detail view for one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (ProductView, error) {
	p, err := s.source.ProductByID(ctx, id)
	if err != nil {
		return ProductView{}, fmt.Errorf("get product: %w", err)
	}
	return s.view(p, s.Now()), nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if ok, err := s.cache.GetJSON(ctx, CacheKeyCategories, &cached); err == nil && ok {
		return cached, nil
	}
	categories, err := s.source.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	_ = s.cache.SetJSON(ctx, CacheKeyCategories, categories)
	return categories, nil
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var cached []Supplier
	if ok, err := s.cache.GetJSON(ctx, CacheKeySuppliers, &cached); err == nil && ok {
		return cached, nil
	}
	suppliers, err := s.source.Suppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	_ = s.cache.SetJSON(ctx, CacheKeySuppliers, suppliers)
	return suppliers, nil
}

// InvalidateBrowseCache drops the cached listings after an admin mutation.
func (s *Service) InvalidateBrowseCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx, CacheKeyProducts, CacheKeyCategories, CacheKeySuppliers)
}

func (s *Service) allProducts(ctx context.Context, categoryID *int64) ([]Product, error) {
	if categoryID != nil {
		products, err := s.source.ProductsByCategory(ctx, *categoryID)
		if err != nil {
			return nil, fmt.Errorf("list products by category: %w", err)
		}
		return products, nil
	}
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, CacheKeyProducts, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.source.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	_ = s.cache.SetJSON(ctx, CacheKeyProducts, products)
	return products, nil
}

func (s *Service) view(p Product, now time.Time) ProductView {
	return ProductView{
		Product:        p,
		EffectivePrice: p.EffectivePriceAt(now),
		OnDiscount:     p.DiscountActiveAt(now),
		CategoryLabel:  p.CategoryName(),
		SupplierLabel:  p.SupplierName(),
	}
}

func sortViews(views []ProductView, sortKey string) {
	switch sortKey {
	case "price_asc":
		sort.SliceStable(views, func(i, j int) bool { return views[i].EffectivePrice < views[j].EffectivePrice })
	case "price_desc":
		sort.SliceStable(views, func(i, j int) bool { return views[i].EffectivePrice > views[j].EffectivePrice })
	case "name":
		sort.SliceStable(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "VALIDATION",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]string{"field": field},
	}
}

func normalizeSort(raw string) string {
	switch strings.TrimSpace(raw) {
	case "price_asc", "price_desc", "name":
		return strings.TrimSpace(raw)
	default:
		return ""
	}
}
