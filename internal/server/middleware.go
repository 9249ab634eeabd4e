package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/segmentio/ksuid"
)

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by RequireAuth, or nil.
func SessionFromContext(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return s
}

// RequireAuth creates middleware that ensures the user is authenticated.
// If redirectOnFail is true (for document/HTML routes), it redirects to the login path on auth failure.
// If redirectOnFail is false (for API routes), it returns a 401 JSON response on auth failure.
func (h *Handler) RequireAuth(redirectOnFail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())

			_, s, err := h.currentSession(r)
			if err != nil {
				logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to load session")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if s == nil {
				logger.Debug().Str("path", r.URL.Path).Msg("No session")
				h.handleAuthFailure(w, r, redirectOnFail, "unauthorized")
				return
			}

			logger.Debug().
				Str("path", r.URL.Path).
				Str("user", s.DisplayName()).
				Msg("Authenticated request")

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// handleAuthFailure handles authentication failures based on the request type
func (h *Handler) handleAuthFailure(w http.ResponseWriter, r *http.Request, redirectOnFail bool, message string) {
	if redirectOnFail {
		http.Redirect(w, r, h.paths.Login, http.StatusFound)
		return
	}
	h.errorResponse(w, http.StatusUnauthorized, ErrorResponse{Error: message})
}

// LoggingMiddleware injects a request-scoped logger into the context and
// logs each request and response.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestLogger := logger.With().Str("request_id", ksuid.New().String()).Logger()
			ctx := requestLogger.WithContext(r.Context())
			r = r.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			// the query string carries codes and state, so it is not logged
			requestLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("Incoming request")

			next.ServeHTTP(rw, r)

			requestLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", rw.statusCode).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StripPrefixMiddleware removes a stage prefix such as /prod that API
// Gateway leaves on request paths.
func StripPrefixMiddleware(env string, next http.Handler) http.Handler {
	if env == "" {
		return next
	}

	prefix := "/" + env
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			r.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
		}
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}

		next.ServeHTTP(w, r)
	})
}
