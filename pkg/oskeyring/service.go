package oskeyring

import (
	"errors"
	"fmt"
	"sync"

	keyringlib "github.com/zalando/go-keyring"
)

// ErrNotFound is returned by Get when no secret is stored for the key.
var ErrNotFound = errors.New("secret not found in keyring")

// Service abstracts the operating system keyring so that code holding
// credentials can be tested without touching the real keychain.
type Service interface {
	// Get retrieves a secret for a given service and key.
	// It returns ErrNotFound if no secret is stored.
	Get(service, key string) (string, error)
	// Set stores a secret for a given service and key.
	Set(service, key, secret string) error
	// Delete removes a secret. Deleting a missing secret is not an error.
	Delete(service, key string) error
}

// SystemService talks to the real OS keyring via zalando/go-keyring.
type SystemService struct{}

func NewSystemService() *SystemService {
	return &SystemService{}
}

func (s *SystemService) Get(service, key string) (string, error) {
	secret, err := keyringlib.Get(service, key)
	if err != nil {
		if errors.Is(err, keyringlib.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get secret from OS keyring: %w", err)
	}
	return secret, nil
}

func (s *SystemService) Set(service, key, secret string) error {
	return keyringlib.Set(service, key, secret)
}

func (s *SystemService) Delete(service, key string) error {
	// zalando/go-keyring does not error on missing entries.
	return keyringlib.Delete(service, key)
}

var _ Service = (*SystemService)(nil)

// MemoryService is an in-memory Service for tests.
type MemoryService struct {
	mu    sync.RWMutex
	store map[string]map[string]string // service -> key -> secret
}

func NewMemoryService() *MemoryService {
	return &MemoryService{store: make(map[string]map[string]string)}
}

func (s *MemoryService) Get(service, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if keys, ok := s.store[service]; ok {
		if secret, ok := keys[key]; ok {
			return secret, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryService) Set(service, key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[service]; !ok {
		s.store[service] = make(map[string]string)
	}
	s.store[service][key] = secret
	return nil
}

func (s *MemoryService) Delete(service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keys, ok := s.store[service]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.store, service)
		}
	}
	return nil
}

var _ Service = (*MemoryService)(nil)
