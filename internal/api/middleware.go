package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/septivank/energy-insights/internal/auth"
	"go.uber.org/zap"
)

// accessLog logs each HTTP request with method, path, status and duration.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			requestLogger(logger, r).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// requireAuth verifies the bearer token and stores the caller in the request
// context. Any failure is a 401.
func requireAuth(verifier *auth.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if err != nil {
				writeAppError(w, r, logger, err)
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				requestLogger(logger, r).Debug("token rejected", zap.Error(err))
				writeAppError(w, r, logger, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), principal, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principal returns the caller set by requireAuth.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
