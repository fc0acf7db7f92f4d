package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CSRFCookie is set by the account login flow and echoed back by the
// storefront in the CSRF header on every mutating request.
const CSRFCookie = "sfg_csrf"

// DefaultCSRFHeader is the header the storefront sends the token in.
const DefaultCSRFHeader = "X-CSRF-Token"

// CSRF enforces double-submit protection for the cookie session. Requests
// authenticated with a bearer token are exempt: a cross-site page cannot
// attach one.
type CSRF struct {
	Header string
	Cookie string
}

// Middleware rejects mutating requests whose header token does not match the
// CSRF cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	header := strings.TrimSpace(c.Header)
	if header == "" {
		header = DefaultCSRFHeader
	}
	cookieName := strings.TrimSpace(c.Cookie)
	if cookieName == "" {
		cookieName = CSRFCookie
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(header))
		if token == "" {
			http.Error(w, "missing csrf token", http.StatusForbidden)
			return
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			http.Error(w, "missing csrf cookie", http.StatusForbidden)
			return
		}
		if !tokensMatch(token, cookie.Value) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokensMatch(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
