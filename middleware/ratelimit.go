package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/caffeineduck/tsbridge/dispatch"
)

// RateLimit rejects requests beyond a token bucket of r requests per second
// with the given burst. The bucket is shared by every client.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				dispatch.WriteError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
