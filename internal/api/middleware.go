// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/metrics"
)

// MiddlewareConfig tunes the Chi middleware stack (teacher pattern:
// internal/api.ChiMiddlewareConfig), trimmed to what this API surface
// needs: CORS and one global rate limit.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	RateLimitDisabled  bool
}

// DefaultMiddlewareConfig returns conservative defaults: no CORS
// origins (must be configured explicitly) and 100 requests/minute.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// CORS builds the CORS middleware from config; it must run globally so
// OPTIONS preflight requests are answered before routing (teacher
// pattern: chi_middleware.go's CORS() comment on chi_router.go).
func (c MiddlewareConfig) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   c.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// RateLimit builds a per-IP rate limiter, or a no-op when disabled.
func (c MiddlewareConfig) RateLimit() func(http.Handler) http.Handler {
	if c.RateLimitDisabled || c.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(c.RateLimitRequests, c.RateLimitWindow)
}

// RequestIDWithLogging wraps chi's RequestID middleware, stamping the
// request context with a correlation id and recording the completed
// request's metrics (teacher pattern: chi_middleware.go).
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)

			metrics.TrackActiveRequest(true)
			defer metrics.TrackActiveRequest(false)
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			chiRequestID.ServeHTTP(sw, r.WithContext(ctx))

			metrics.RecordAPIRequest(r.Method, r.URL.Path, http.StatusText(sw.status), time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// SecurityHeaders adds response headers appropriate for a JSON API
// (teacher pattern: chi_middleware.go's APISecurityHeaders).
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
