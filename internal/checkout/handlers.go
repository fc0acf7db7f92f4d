package checkout

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Handler exposes the checkout and order endpoints. All routes require a
// session.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyCodeRequest struct {
	Code string `json:"code"`
}

// PaymentMethods handles GET /api/v1/checkout/payment-methods.
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.PaymentMethods(r.Context())})
}

// Promotions handles GET /api/v1/checkout/promotions.
func (h *Handler) Promotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.service.AvailablePromotions(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": promos})
}

// Quote handles GET /api/v1/checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.QuoteCart(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// ApplyCode handles POST /api/v1/checkout/apply-code.
func (h *Handler) ApplyCode(w http.ResponseWriter, r *http.Request) {
	var req applyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON payload", nil)
		return
	}
	quote, err := h.service.ApplyCode(r.Context(), req.Code)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// PlaceOrder handles POST /api/v1/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON payload", nil)
		return
	}
	order, err := h.service.PlaceOrder(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// Orders handles GET /api/v1/orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Orders(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// OrderDetail handles GET /api/v1/orders/{id}.
func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.OrderByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// ConfirmDelivery handles PATCH /api/v1/orders/{id}/deliver.
func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.ConfirmDelivery(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// SubmitFeedback handles POST /api/v1/feedbacks.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var form FeedbackForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON payload", nil)
		return
	}
	fb, err := h.service.SubmitFeedback(r.Context(), form)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": fb})
}

// Feedbacks handles GET /api/v1/feedbacks.
func (h *Handler) Feedbacks(w http.ResponseWriter, r *http.Request) {
	feedbacks, err := h.service.Feedbacks(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": feedbacks})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
