package stores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tavre/orgsync/server/model"
)

// organizationMemoryStore provides an in-memory implementation of OrganizationStore.
type organizationMemoryStore struct {
	mu   sync.RWMutex
	orgs map[string]*model.Organization // keyed by Organization ID
}

// NewOrganizationMemoryStore creates a new in-memory organization store.
func NewOrganizationMemoryStore() OrganizationStore {
	return &organizationMemoryStore{
		orgs: make(map[string]*model.Organization),
	}
}

func (s *organizationMemoryStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return ErrOrganizationExists
	}
	if org.Type == "" {
		return errors.New("organization type cannot be empty")
	}
	if org.OwnerUserID == "" {
		return errors.New("organization must have an owner")
	}

	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	newOrg := cloneOrganization(org)
	s.orgs[newOrg.ID] = newOrg
	return nil
}

func (s *organizationMemoryStore) GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	return cloneOrganization(org), nil
}

func (s *organizationMemoryStore) UpdateOrganization(ctx context.Context, id string, updateFn func(model.Organization) (model.Organization, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return ErrOrganizationNotFound
	}
	updated, err := updateFn(*cloneOrganization(org))
	if err != nil {
		return err
	}
	updated.ID = org.ID // the id is immutable
	updated.UpdatedAt = time.Now()
	s.orgs[id] = cloneOrganization(&updated)
	return nil
}

func (s *organizationMemoryStore) DeleteOrganization(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[id]; !ok {
		return ErrOrganizationNotFound
	}
	delete(s.orgs, id)
	return nil
}

func (s *organizationMemoryStore) ListOrganizationsForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Organization
	for _, org := range s.orgs {
		if org.RoleOf(userID) != "" {
			result = append(result, cloneOrganization(org))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// cloneOrganization copies an organization so store internals never leak.
func cloneOrganization(org *model.Organization) *model.Organization {
	clone := *org
	if org.Members != nil {
		clone.Members = make(map[string]model.Role, len(org.Members))
		for id, role := range org.Members {
			clone.Members[id] = role
		}
	}
	return &clone
}

var _ OrganizationStore = (*organizationMemoryStore)(nil)
