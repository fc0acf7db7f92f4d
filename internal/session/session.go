package session

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// RoleAdmin is the role claim value granting access to the admin surface.
const RoleAdmin = "admin"

// ErrNotAuthenticated is returned when no session is attached to the context.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Session is the explicit per-browser session object. It is constructed at
// login, stored server-side, and passed to handlers through the request
// context; nothing in the gateway reads token state from ambient storage.
type Session struct {
	ID     string `json:"id"`
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the session carries the admin role claim.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type ctxKey struct{}

// WithSession stores the session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the session from the context if present.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// Claims are the token fields the gateway cares about.
type Claims struct {
	UserID int64
	Name   string
	Role   string
}

// DecodeClaims reads identity claims from the upstream bearer token without
// verifying its signature. The upstream API is the authority on the token;
// the gateway decodes it only to know who to render the UI for.
func DecodeClaims(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, errors.New("session: empty token")
	}
	tok, err := jwt.ParseInsecure([]byte(trimmed))
	if err != nil {
		return Claims{}, err
	}
	claims := Claims{}
	if v, ok := tok.Get("role"); ok {
		if role, ok := v.(string); ok {
			claims.Role = role
		}
	}
	if v, ok := tok.Get("name"); ok {
		if name, ok := v.(string); ok {
			claims.Name = name
		}
	}
	if v, ok := tok.Get("userId"); ok {
		claims.UserID = claimInt64(v)
	} else if sub := tok.Subject(); sub != "" {
		claims.UserID = parseInt64(sub)
	}
	return claims, nil
}

func claimInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		return parseInt64(n)
	default:
		return 0
	}
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
