package middleware

import (
	"log/slog"
	"net/http"

	"teslabooking/internal/cache"
	"teslabooking/internal/httputil"
)

// RateLimit rejects requests over the per-IP budget with 429. message picks
// the response text per request so it can be localized. When the limiter
// fails the request is let through.
func RateLimit(limiter cache.RateLimiter, message func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				slog.Warn("rate limiter unavailable", "ip", ip, "error", err)
			}
			if !allowed {
				httputil.WriteTooManyRequests(w, message(r))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
