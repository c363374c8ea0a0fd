// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/promptarena/verdict/internal/domain/gate"
	"github.com/promptarena/verdict/pkg/metrics"
)

type actorContextKey struct{}

// ActorFromContext returns the verified actor placed by AuthMiddleware.
func ActorFromContext(ctx context.Context) (gate.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(gate.Actor)
	return actor, ok
}

// AuthMiddleware enforces the superadmin bearer token and stashes the
// resolved actor on the request context. An unset expected token locks the
// route entirely rather than opening it.
func AuthMiddleware(expectedToken string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.auth"
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		if expectedToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrUnauthorized))
			return
		}
		actor := gate.Actor{ID: "superadmin", Role: gate.RoleSuperadmin}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey{}, actor)))
	}
}

// RateLimitMiddleware applies one shared token bucket across the API,
// mirroring the defensive limiter the constrained hosting tier needs.
func RateLimitMiddleware(rps float64, burst int) func(http.HandlerFunc) http.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.RecordHTTPRateLimited()
				writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000.0
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
