package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/auth"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ContextKeyUserID is the context key for the caller's user id.
	ContextKeyUserID contextKey = "user_id"

	// ContextKeyTier is the context key for the caller's tier.
	ContextKeyTier contextKey = "tier"

	// ContextKeyToken is the context key for the raw bearer token, set
	// only for authenticated callers.
	ContextKeyToken contextKey = "token"
)

// Identity describes the caller resolved by the auth middleware.
type Identity struct {
	UserID string
	Tier   string
	Guest  bool
}

// AuthMiddleware resolves the caller's identity. A valid bearer
// credential yields the credential's subject and tier; anything else
// falls back to a stable guest identity on the guest tier, so every
// request carries an identity usage can accrue against.
func AuthMiddleware(svc *auth.Service, guestTier string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				claims, err := svc.Verify(ctx, token)
				if err == nil {
					tier := claims.Tier
					if tier == "" {
						tier = "free"
					}
					ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID())
					ctx = context.WithValue(ctx, ContextKeyTier, tier)
					ctx = context.WithValue(ctx, ContextKeyToken, token)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			ctx = context.WithValue(ctx, ContextKeyUserID, auth.GuestIdentity(host, r.UserAgent()))
			ctx = context.WithValue(ctx, ContextKeyTier, guestTier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		if cookie, err := r.Cookie("access_token"); err == nil {
			return cookie.Value
		}
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// IdentityFromContext extracts the caller identity set by the auth
// middleware.
func IdentityFromContext(ctx context.Context, guestTier string) Identity {
	userID, _ := ctx.Value(ContextKeyUserID).(string)
	tier, _ := ctx.Value(ContextKeyTier).(string)
	if tier == "" {
		tier = guestTier
	}
	_, hasToken := ctx.Value(ContextKeyToken).(string)
	return Identity{UserID: userID, Tier: tier, Guest: !hasToken}
}

// TokenFromContext extracts the raw bearer token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ContextKeyToken).(string)
	return token, ok
}

// LoggingMiddleware logs each request and records request metrics.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			path := r.URL.Path
			metrics.RequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.RequestDuration.WithLabelValues(path).Observe(duration.Seconds())

			logger.Info().
				Str("method", r.Method).
				Str("path", path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Msg("API request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// CORSMiddleware creates middleware for CORS support.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
