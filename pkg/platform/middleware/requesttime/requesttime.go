// Package requesttime provides middleware for request-scoped time.
// All storage operations within a single HTTP request use the same "now",
// so an entry written and read back in one request agrees on its expiry.
package requesttime

import (
	"net/http"
	"time"

	"topup/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
