package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// CookieName is the gateway session cookie.
const CookieName = "sfg_session"

// Middleware resolves the session cookie into an explicit Session on the
// request context.
type Middleware struct {
	Store *Store
}

// Resolve attaches the session when present; anonymous requests pass through.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.sessionFromRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Require rejects requests without a live session.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.sessionFromRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireAdmin rejects sessions that do not carry the admin role claim.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := FromContext(r.Context())
		if !sess.IsAdmin() {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (m Middleware) sessionFromRequest(r *http.Request) (Session, error) {
	if m.Store == nil {
		return Session{}, errors.New("session: store not configured")
	}
	id := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		id = strings.TrimSpace(cookie.Value)
	}
	if id == "" {
		if header := strings.TrimSpace(r.Header.Get("X-Session-ID")); header != "" {
			id = header
		}
	}
	if id == "" {
		return Session{}, ErrNotFound
	}
	return m.Store.Get(r.Context(), id)
}
