// Package identity resolves the currently authenticated user and notifies
// subscribers when that identity changes (login, logout, session expiry).
package identity

import (
	"context"
)

const (
	ServiceName      = "orgsync"
	SessionTokenKey  = "session_token"
	SessionExpiryKey = "session_expiry"
	UserIDKey        = "user_id"
	LoginKey         = "login"
)

// Change describes an identity transition. An empty UserID means the
// session ended and no user is authenticated.
type Change struct {
	UserID string
	Login  string
}

// Source exposes the current user identity and a stream of identity changes.
type Source interface {
	// CurrentUserID returns the authenticated user's id, or "" when no
	// identity is available. An unresolvable identity is not an error.
	CurrentUserID(ctx context.Context) (string, error)
	// Subscribe registers a callback for identity changes and returns a
	// function that releases the subscription.
	Subscribe(fn func(Change)) (unsubscribe func())
}
