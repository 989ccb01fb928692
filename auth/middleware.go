package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

// UserContextKey is the context key for the authenticated user
const UserContextKey contextKey = "auth_user"

// CookieName is the cookie checked when no Authorization header is present
const CookieName = "sakura_auth"

// TokenValidator is the part of JWTManager the middleware needs
type TokenValidator interface {
	ValidateToken(token string) (*User, error)
}

// Middleware attaches the caller's identity to request contexts
type Middleware struct {
	validator TokenValidator
	logger    *zap.SugaredLogger
}

// NewMiddleware creates auth middleware around a token validator
func NewMiddleware(validator TokenValidator, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{validator: validator, logger: logger}
}

// OptionalAuth validates a token if one is present but lets anonymous
// requests through. Handlers decide what anonymous callers may do.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			user, err := m.validator.ValidateToken(token)
			if err != nil {
				m.logger.Debugw("Token validation failed", "path", r.URL.Path, "error", err)
			} else {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next(w, r)
	}
}

// RequireAuth rejects requests without a valid token with 401
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

// extractToken checks the Authorization header, then the auth cookie, then the
// token query parameter (browsers cannot set headers on websocket upgrades).
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// WithUser returns ctx carrying user
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(UserContextKey).(*User)
	return user
}
