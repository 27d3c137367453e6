// Package middleware wraps HTTP handlers with logging, rate limiting and
// panic recovery.
package middleware

import "net/http"

type Middleware func(next http.Handler) http.Handler

// Chain composes middlewares so the first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
