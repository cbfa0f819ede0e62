package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tavre/orgsync/pkg/oskeyring"
	"github.com/tavre/orgsync/pkg/session"
)

// ErrNoSession is returned by SessionToken when no usable session is stored.
var ErrNoSession = errors.New("no session token stored, please login first")

// KeyringSource stores the orgsync session in the OS keyring and implements
// Source on top of it. Identity changes are fanned out to subscribers
// registered through Subscribe.
type KeyringSource struct {
	keyring oskeyring.Service
	logger  *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

func NewKeyringSource(keyring oskeyring.Service, logger *slog.Logger) *KeyringSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyringSource{
		keyring: keyring,
		logger:  logger,
		subs:    make(map[int]func(Change)),
	}
}

func (s *KeyringSource) CurrentUserID(ctx context.Context) (string, error) {
	if s.sessionExpired() {
		return "", nil
	}
	userID, err := s.keyring.Get(ServiceName, UserIDKey)
	if err == nil && userID != "" {
		return userID, nil
	}
	if err != nil && !errors.Is(err, oskeyring.ErrNotFound) {
		return "", fmt.Errorf("failed to read user id from keyring: %w", err)
	}
	// Fall back to the stored token's own claims.
	token, err := s.keyring.Get(ServiceName, SessionTokenKey)
	if err != nil {
		if errors.Is(err, oskeyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session token from keyring: %w", err)
	}
	claims, err := session.PeekClaims(token)
	if err != nil {
		s.logger.Debug("stored session token is not decodable", "error", err)
		return "", nil
	}
	return claims.UserID, nil
}

// SessionToken returns the stored session token for authenticated requests.
func (s *KeyringSource) SessionToken(ctx context.Context) (string, error) {
	if s.sessionExpired() {
		return "", ErrNoSession
	}
	token, err := s.keyring.Get(ServiceName, SessionTokenKey)
	if err != nil {
		if errors.Is(err, oskeyring.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read session token from keyring: %w", err)
	}
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Login returns the stored login name, or "" when unknown.
func (s *KeyringSource) Login(ctx context.Context) (string, error) {
	login, err := s.keyring.Get(ServiceName, LoginKey)
	if err != nil {
		if errors.Is(err, oskeyring.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return login, nil
}

// StoreSession persists a freshly issued session token and publishes the
// resulting identity change. The user id and login are read from the
// token's own claims.
func (s *KeyringSource) StoreSession(ctx context.Context, token string, expiresAt int64) error {
	claims, err := session.PeekClaims(token)
	if err != nil {
		return fmt.Errorf("refusing to store undecodable session token: %w", err)
	}
	if err := s.keyring.Set(ServiceName, SessionTokenKey, token); err != nil {
		return fmt.Errorf("failed to store session token in keyring: %w", err)
	}
	if err := s.keyring.Set(ServiceName, SessionExpiryKey, strconv.FormatInt(expiresAt, 10)); err != nil {
		s.logger.Warn("failed to store session expiry in keyring", "error", err)
	}
	if claims.UserID != "" {
		if err := s.keyring.Set(ServiceName, UserIDKey, claims.UserID); err != nil {
			s.logger.Warn("failed to store user id in keyring", "error", err)
		}
	}
	if claims.Login != "" {
		if err := s.keyring.Set(ServiceName, LoginKey, claims.Login); err != nil {
			s.logger.Warn("failed to store login in keyring", "error", err)
		}
	}
	s.publish(Change{UserID: claims.UserID, Login: claims.Login})
	return nil
}

// Logout removes all stored session material and publishes an empty identity.
func (s *KeyringSource) Logout(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{SessionTokenKey, SessionExpiryKey, UserIDKey, LoginKey} {
		if err := s.keyring.Delete(ServiceName, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.publish(Change{})
	return firstErr
}

func (s *KeyringSource) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *KeyringSource) publish(change Change) {
	s.mu.Lock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

// sessionExpired reports whether a stored expiry timestamp is in the past.
// A missing or unparsable expiry does not invalidate the session; the server
// still validates every token it receives.
func (s *KeyringSource) sessionExpired() bool {
	expiryStr, err := s.keyring.Get(ServiceName, SessionExpiryKey)
	if err != nil {
		return false
	}
	expiryUnix, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return false
	}
	return time.Now().Unix() > expiryUnix
}

var _ Source = (*KeyringSource)(nil)
