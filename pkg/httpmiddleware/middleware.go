// Package httpmiddleware provides the HTTP server middleware chain: panic
// recovery, CORS, rate limiting, request IDs, context loggers, and OpenTelemetry
// instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to next so that the first middleware in the list
// becomes the outermost handler.
func Wrap(next http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = middlewares[i](next)
	}
	return next
}
