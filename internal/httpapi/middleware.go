package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Recovery recovers from a handler panic and responds 500. Grounded
// on internal/interfaces/rest/middleware/recovery.go almost verbatim.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					respondWithError(w, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds how long a handler may run before responding 503 to
// the merchant. Unlike internal/interfaces/rest/middleware/timeout.go,
// it does NOT cancel the context passed to next: detaching via
// context.WithoutCancel means a merchant disconnect/timeout can never
// abort an in-flight bank call or roll back a committing transaction
// (SPEC_FULL.md §5).
func Timeout(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			detached := context.WithoutCancel(r.Context())
			r = r.WithContext(detached)

			done := make(chan struct{})
			panicChan := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(w, r)
				close(done)
			}()

			select {
			case <-ctx.Done():
				logger.Warn("request timed out", "path", r.URL.Path, "method", r.Method)
				respondWithJSON(w, http.StatusServiceUnavailable, &apiError{
					Error:   "TIMEOUT",
					Message: "the request took too long to respond; the payment may still be processing",
				})
			case p := <-panicChan:
				panic(p)
			case <-done:
			}
		})
	}
}
