package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/callsight/callsight/internal/identity"
	"github.com/callsight/callsight/pkg/logger"
	"github.com/callsight/callsight/pkg/metrics"
)

const bearerPrefix = "Bearer "

type identityKey struct{}

// IdentityFrom returns the verified identity attached by RequireAuth.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity.Identity)
	return id, ok
}

// RequireAuth gates a handler behind bearer-token verification. The
// resolved identity rides the request context; handlers derive every
// storage key from it, never from caller-supplied input.
//
// Missing and invalid credentials both answer 403, mirroring the
// dashboard contract. The specific verification failure is only logged.
func RequireAuth(verifier identity.Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			logger.Get().Error(ctx, "auth gate unusable: identity provider not configured")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An unexpected error occurred."})
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			metrics.RecordAuthFailure("no_token")
			writeText(w, http.StatusForbidden, "Unauthorized: No token provided.")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

		id, err := verifier.Verify(ctx, token)
		if err != nil {
			logger.Get().Warn(ctx, "token verification failed", logger.Error(err))
			metrics.RecordAuthFailure("invalid_token")
			writeText(w, http.StatusForbidden, "Unauthorized: Invalid token.")
			return
		}
		metrics.RecordAuthVerified()

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, identityKey{}, id)))
	}
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
