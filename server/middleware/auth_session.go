package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tavre/orgsync/pkg/session"
)

// SessionUser holds user information derived from an orgsync session token.
type SessionUser struct {
	UserID string
	Login  string
}

type sessionUserKey struct{}

// SessionUserFrom extracts the authenticated session user from a request
// context populated by WithSessionAuth.
func SessionUserFrom(ctx context.Context) (SessionUser, bool) {
	user, ok := ctx.Value(sessionUserKey{}).(SessionUser)
	return user, ok
}

// SessionValidator defines the function signature for validating a session token.
type SessionValidator func(ctx context.Context, token string) (SessionUser, bool)

// WithSessionAuth wraps handlers with session token validation. When a valid
// token is present the user is added to the context; otherwise the request
// proceeds without one, and handlers that require auth reject it themselves.
func WithSessionAuth(validate SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get("Authorization"))
			userCtx := r.Context()

			if token != "" {
				user, valid := validate(r.Context(), token)
				if valid {
					userCtx = context.WithValue(r.Context(), sessionUserKey{}, user)
					logger.DebugContext(userCtx, "session authenticated", "login", user.Login, "id", user.UserID)
				} else {
					logger.WarnContext(userCtx, "invalid session token presented")
				}
			}
			next.ServeHTTP(w, r.WithContext(userCtx))
		})
	}
}

// DefaultSessionValidator uses pkg/session to validate JWTs.
func DefaultSessionValidator(ctx context.Context, token string) (SessionUser, bool) {
	claims, err := session.ValidateToken(token)
	if err != nil {
		slog.DebugContext(ctx, "session token validation failed", "error", err)
		return SessionUser{}, false
	}
	return SessionUser{
		UserID: claims.UserID,
		Login:  claims.Login,
	}, true
}
