package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/storefront-gateway/internal/catalog"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/promo"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// Upstream is the slice of the API client the admin surface needs.
type Upstream interface {
	CreateProduct(ctx context.Context, in upstream.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, in upstream.ProductInput) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, in upstream.CategoryInput) (catalog.Category, error)
	UpdateCategory(ctx context.Context, id int64, in upstream.CategoryInput) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CreateSupplier(ctx context.Context, in upstream.SupplierInput) (catalog.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in upstream.SupplierInput) (catalog.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
	Promotions(ctx context.Context) ([]promo.Promotion, error)
	PromotionByID(ctx context.Context, id int64) (promo.Promotion, error)
	CreatePromotion(ctx context.Context, in upstream.PromotionInput) (promo.Promotion, error)
	UpdatePromotion(ctx context.Context, id int64, in upstream.PromotionInput) (promo.Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
	TogglePromotion(ctx context.Context, id int64) (promo.Promotion, error)
	Users(ctx context.Context) ([]upstream.User, error)
	UserByID(ctx context.Context, id int64) (upstream.User, error)
	CreateUser(ctx context.Context, in upstream.UserInput) (upstream.User, error)
	UpdateUser(ctx context.Context, id int64, in upstream.UserInput) (upstream.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ConfirmOrder(ctx context.Context, id int64) (upstream.Order, error)
	Notifications(ctx context.Context) ([]upstream.Notification, error)
}

// CacheInvalidator drops cached browse listings after a catalog mutation.
type CacheInvalidator interface {
	InvalidateBrowseCache(ctx context.Context) error
}

// Handler exposes the admin CRUD surface. Every route sits behind the admin
// role check; the upstream API enforces authorization again on its side.
type Handler struct {
	upstream Upstream
	cache    CacheInvalidator
	validate *validator.Validate
}

// HandlerConfig groups Handler dependencies.
type HandlerConfig struct {
	Upstream  Upstream
	Cache     CacheInvalidator
	Validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("admin: upstream client is required")
	}
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}
	return &Handler{upstream: cfg.Upstream, cache: cfg.Cache, validate: v}, nil
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var form productForm
	if !h.decode(w, r, &form) {
		return
	}
	product, err := h.upstream.CreateProduct(r.Context(), form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form productForm
	if !h.decode(w, r, &form) {
		return
	}
	product, err := h.upstream.UpdateProduct(r.Context(), id, form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.upstream.DeleteProduct, true)
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var form categoryForm
	if !h.decode(w, r, &form) {
		return
	}
	category, err := h.upstream.CreateCategory(r.Context(), form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": category})
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form categoryForm
	if !h.decode(w, r, &form) {
		return
	}
	category, err := h.upstream.UpdateCategory(r.Context(), id, form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": category})
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.upstream.DeleteCategory, true)
}

// CreateSupplier handles POST /api/v1/admin/suppliers.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var form supplierForm
	if !h.decode(w, r, &form) {
		return
	}
	supplier, err := h.upstream.CreateSupplier(r.Context(), form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": supplier})
}

// UpdateSupplier handles PUT /api/v1/admin/suppliers/{id}.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form supplierForm
	if !h.decode(w, r, &form) {
		return
	}
	supplier, err := h.upstream.UpdateSupplier(r.Context(), id, form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.invalidate(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": supplier})
}

// DeleteSupplier handles DELETE /api/v1/admin/suppliers/{id}.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.upstream.DeleteSupplier, true)
}

// Promotions handles GET /api/v1/admin/promotions.
func (h *Handler) Promotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.upstream.Promotions(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": promos})
}

// PromotionDetail handles GET /api/v1/admin/promotions/{id}.
func (h *Handler) PromotionDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.upstream.PromotionByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// CreatePromotion handles POST /api/v1/admin/promotions.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var form promotionForm
	if !h.decode(w, r, &form) {
		return
	}
	p, err := h.upstream.CreatePromotion(r.Context(), form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// UpdatePromotion handles PUT /api/v1/admin/promotions/{id}.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form promotionForm
	if !h.decode(w, r, &form) {
		return
	}
	p, err := h.upstream.UpdatePromotion(r.Context(), id, form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// DeletePromotion handles DELETE /api/v1/admin/promotions/{id}.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.upstream.DeletePromotion, false)
}

// TogglePromotion handles PATCH /api/v1/admin/promotions/{id}/toggle.
func (h *Handler) TogglePromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.upstream.TogglePromotion(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Users handles GET /api/v1/admin/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.upstream.Users(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": users})
}

// UserDetail handles GET /api/v1/admin/users/{id}.
func (h *Handler) UserDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.upstream.UserByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// CreateUser handles POST /api/v1/admin/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var form userForm
	if !h.decode(w, r, &form) {
		return
	}
	if form.Password == nil || strings.TrimSpace(*form.Password) == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "password is required", nil)
		return
	}
	user, err := h.upstream.CreateUser(r.Context(), form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": user})
}

// UpdateUser handles PUT /api/v1/admin/users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form userForm
	if !h.decode(w, r, &form) {
		return
	}
	user, err := h.upstream.UpdateUser(r.Context(), id, form.toInput())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.upstream.DeleteUser, false)
}

// ConfirmOrder handles PATCH /api/v1/admin/orders/{id}/confirm.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.upstream.ConfirmOrder(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// Notifications handles GET /api/v1/admin/notifications.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.upstream.Notifications(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": notes})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, form any) bool {
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON payload", nil)
		return false
	}
	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid form values", details)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid form values", nil)
		return false
	}
	return true
}

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error, touchesCatalog bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := del(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	if touchesCatalog {
		h.invalidate(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.cache != nil {
		_ = h.cache.InvalidateBrowseCache(ctx)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
