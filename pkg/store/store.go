package store

import (
	"context"
	"sync"

	"github.com/tavre/orgsync/pkg/model"
)

// CacheEntry is the single durable snapshot of the organization list.
// Timestamp is epoch milliseconds at the time of the last successful fetch.
// UserID records which identity the snapshot belongs to; a reader must
// ignore the entry when it was written for a different user.
type CacheEntry struct {
	Timestamp     int64                `json:"timestamp"`
	Organizations []model.Organization `json:"organizations"`
	UserID        string               `json:"userId"`
}

// CacheStore persists the one cache entry. There is exactly one slot:
// Put overwrites whatever was stored before.
type CacheStore interface {
	// Get returns the stored entry, or (nil, nil) when nothing is stored.
	Get(ctx context.Context) (*CacheEntry, error)
	// Put overwrites the stored entry.
	Put(ctx context.Context, entry CacheEntry) error
	Close() error
}

// MemoryStore is an in-memory CacheStore for tests.
type MemoryStore struct {
	mu    sync.Mutex
	entry *CacheEntry
	puts  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entry == nil {
		return nil, nil
	}
	entry := *m.entry
	return &entry, nil
}

func (m *MemoryStore) Put(ctx context.Context, entry CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = &entry
	m.puts++
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Puts reports how many writes the store has received.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

var _ CacheStore = (*MemoryStore)(nil)
