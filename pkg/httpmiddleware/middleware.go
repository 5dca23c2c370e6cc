// Package httpmiddleware provides net/http middleware used by the API server:
// panic recovery, CORS, sliding window rate limiting, request IDs, and
// request logging.
package httpmiddleware

import "net/http"

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies the given middlewares to next. The first middleware in the
// list becomes the outermost handler.
func Wrap(next http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}
