package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/security"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// Upstream is the slice of the API client the account surface needs.
type Upstream interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, in upstream.RegisterInput) (upstream.User, error)
}

// Handler exposes login, registration and logout. A successful login stores
// the upstream token server-side and hands the browser only a session cookie.
type Handler struct {
	upstream Upstream
	store    *session.Store
	validate *validator.Validate
	secure   bool
}

// HandlerConfig groups Handler dependencies.
type HandlerConfig struct {
	Upstream     Upstream
	Store        *session.Store
	Validator    *validator.Validate
	SecureCookie bool
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("account: upstream client is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("account: session store is required")
	}
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}
	return &Handler{upstream: cfg.Upstream, store: cfg.Store, validate: v, secure: cfg.SecureCookie}, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Address  string `json:"address" validate:"max=500"`
	Phone    string `json:"phone" validate:"max=30"`
}

type sessionResponse struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.upstream.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.store.Create(r.Context(), token)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not create session", nil)
		return
	}
	h.setCookie(w, sess.ID, 0)
	h.setCSRFCookie(w)
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionResponse{
		UserID: sess.UserID,
		Name:   sess.Name,
		Role:   sess.Role,
	}})
}

// Register handles POST /api/v1/auth/register. Registration logs the new
// account in right away so the storefront lands on an authenticated page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	_, err := h.upstream.Register(r.Context(), upstream.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     "user",
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	token, err := h.upstream.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.store.Create(r.Context(), token)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not create session", nil)
		return
	}
	h.setCookie(w, sess.ID, 0)
	h.setCSRFCookie(w)
	common.JSON(w, http.StatusCreated, map[string]any{"data": sessionResponse{
		UserID: sess.UserID,
		Name:   sess.Name,
		Role:   sess.Role,
	}})
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		_ = h.store.Delete(r.Context(), sess.ID)
	}
	h.setCookie(w, "", -time.Hour)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionResponse{
		UserID: sess.UserID,
		Name:   sess.Name,
		Role:   sess.Role,
	}})
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

func (h *Handler) setCookie(w http.ResponseWriter, value string, expire time.Duration) {
	cookie := &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if expire < 0 {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// setCSRFCookie issues the double-submit token. The storefront reads it and
// echoes it back in the CSRF header, so it must stay reachable from script.
func (h *Handler) setCSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.CSRFCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
