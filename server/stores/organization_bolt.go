package stores

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tavre/orgsync/server/model"
)

// BoltOrganizationStore implements OrganizationStore on top of BoltDB.
// Bucket: "organizations" -> key: org ID, value: JSON-encoded model.Organization
type BoltOrganizationStore struct {
	db *bbolt.DB
}

var organizationsBucket = []byte("organizations")

func NewBoltOrganizationStore(db *bbolt.DB) (*BoltOrganizationStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(organizationsBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BoltOrganizationStore{db: db}, nil
}

func (s *BoltOrganizationStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(organizationsBucket)
		if bucket.Get([]byte(org.ID)) != nil {
			return ErrOrganizationExists
		}
		now := time.Now()
		if org.CreatedAt.IsZero() {
			org.CreatedAt = now
		}
		org.UpdatedAt = now
		data, err := json.Marshal(org)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(org.ID), data)
	})
}

func (s *BoltOrganizationStore) GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(organizationsBucket)
		val := bucket.Get([]byte(id))
		if val == nil {
			return ErrOrganizationNotFound
		}
		return json.Unmarshal(val, &org)
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *BoltOrganizationStore) UpdateOrganization(ctx context.Context, id string, updateFn func(model.Organization) (model.Organization, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(organizationsBucket)
		val := bucket.Get([]byte(id))
		if val == nil {
			return ErrOrganizationNotFound
		}
		var org model.Organization
		if err := json.Unmarshal(val, &org); err != nil {
			return err
		}
		updated, err := updateFn(org)
		if err != nil {
			return err
		}
		updated.ID = org.ID
		updated.UpdatedAt = time.Now()
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), data)
	})
}

func (s *BoltOrganizationStore) DeleteOrganization(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(organizationsBucket)
		if bucket.Get([]byte(id)) == nil {
			return ErrOrganizationNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *BoltOrganizationStore) ListOrganizationsForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	var result []*model.Organization
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(organizationsBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var org model.Organization
			if err := json.Unmarshal(v, &org); err != nil {
				return err
			}
			if org.RoleOf(userID) != "" {
				result = append(result, &org)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

var _ OrganizationStore = (*BoltOrganizationStore)(nil)
