package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Handler throttles a route group. Key extracts the throttling identity from
// the request, usually the client IP. A limiter error fails open: a Redis
// blip must not lock customers out of login or chat.
type Handler struct {
	Limiter SlidingWindow
	Key     func(*http.Request) string
	Window  time.Duration
	Max     int
	OnError func(error)
}

// Middleware enforces the limit and annotates responses with rate headers.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		verdict, err := h.Limiter.Allow(r.Context(), h.Key(r), h.Window, h.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Max, 0)))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(verdict.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(verdict.Reset.Unix(), 10))

		if !verdict.Allowed {
			retryAfter := int(time.Until(verdict.Reset).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			hdr.Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
