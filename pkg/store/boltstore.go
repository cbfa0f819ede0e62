package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// BoltStore implements CacheStore using BoltDB.
// Bucket: "organizations" -> key: "entry", value: JSON-encoded CacheEntry

type BoltStore struct {
	db *bbolt.DB
}

const bucketName = "organizations"
const entryKey = "entry"

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Get(ctx context.Context) (*CacheEntry, error) {
	var entry *CacheEntry
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		val := bucket.Get([]byte(entryKey))
		if val == nil {
			return nil
		}
		entry = &CacheEntry{}
		if err := json.Unmarshal(val, entry); err != nil {
			return fmt.Errorf("failed to decode cache entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (b *BoltStore) Put(ctx context.Context, entry CacheEntry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		val, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(entryKey), val)
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

var _ CacheStore = (*BoltStore)(nil)
