package stores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/tavre/orgsync/server/model"
)

const organizationKind = "Organization"

// OrganizationDataStore implements OrganizationStore using Google Cloud Datastore.
type OrganizationDataStore struct {
	client *datastore.Client
	logger *slog.Logger
}

// NewOrganizationDataStore creates a new datastore-backed organization store.
func NewOrganizationDataStore(logger *slog.Logger, client *datastore.Client) *OrganizationDataStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizationDataStore{client: client, logger: logger}
}

// organizationEntity flattens the Members map, which datastore cannot store
// directly. MemberIDs is indexed so membership queries stay cheap.
type organizationEntity struct {
	ID          string
	Name        string
	OwnerUserID string
	Type        string
	MemberIDs   []string
	MemberRoles []string `datastore:",noindex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func toEntity(org *model.Organization) *organizationEntity {
	e := &organizationEntity{
		ID:          org.ID,
		Name:        org.Name,
		OwnerUserID: org.OwnerUserID,
		Type:        string(org.Type),
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
	for id, role := range org.Members {
		e.MemberIDs = append(e.MemberIDs, id)
		e.MemberRoles = append(e.MemberRoles, string(role))
	}
	return e
}

func fromEntity(e *organizationEntity) *model.Organization {
	org := &model.Organization{
		ID:          e.ID,
		Name:        e.Name,
		OwnerUserID: e.OwnerUserID,
		Type:        model.OrganizationType(e.Type),
		Members:     make(map[string]model.Role, len(e.MemberIDs)),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for i, id := range e.MemberIDs {
		if i < len(e.MemberRoles) {
			org.Members[id] = model.Role(e.MemberRoles[i])
		}
	}
	return org
}

// organizationKey creates a datastore key for an organization.
func (s *OrganizationDataStore) organizationKey(id string) *datastore.Key {
	return datastore.NameKey(organizationKind, id, nil)
}

func (s *OrganizationDataStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	key := s.organizationKey(org.ID)

	var existing organizationEntity
	err := s.client.Get(ctx, key, &existing)
	if err == nil {
		return ErrOrganizationExists
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return fmt.Errorf("failed to check for existing organization: %w", err)
	}

	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	if _, err := s.client.Put(ctx, key, toEntity(org)); err != nil {
		return fmt.Errorf("failed to put organization: %w", err)
	}
	return nil
}

func (s *OrganizationDataStore) GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	key := s.organizationKey(id)
	var entity organizationEntity
	err := s.client.Get(ctx, key, &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by ID: %w", err)
	}
	return fromEntity(&entity), nil
}

func (s *OrganizationDataStore) UpdateOrganization(ctx context.Context, id string, updateFn func(model.Organization) (model.Organization, error)) error {
	key := s.organizationKey(id)

	tx, err := s.client.NewTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if commit fails

	var entity organizationEntity
	if err := tx.Get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to get organization for update: %w", err)
	}

	updated, err := updateFn(*fromEntity(&entity))
	if err != nil {
		return err
	}
	updated.ID = entity.ID
	updated.UpdatedAt = time.Now()

	if _, err := tx.Put(key, toEntity(&updated)); err != nil {
		return fmt.Errorf("failed to put updated organization: %w", err)
	}
	if _, err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *OrganizationDataStore) DeleteOrganization(ctx context.Context, id string) error {
	key := s.organizationKey(id)
	// Delete is idempotent in datastore; a missing entity is not an error.
	err := s.client.Delete(ctx, key)
	if err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

func (s *OrganizationDataStore) ListOrganizationsForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	var entities []*organizationEntity
	q := datastore.NewQuery(organizationKind).FilterField("MemberIDs", "=", userID).Order("Name")
	if _, err := s.client.GetAll(ctx, q, &entities); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	orgs := make([]*model.Organization, 0, len(entities))
	for _, entity := range entities {
		orgs = append(orgs, fromEntity(entity))
	}
	return orgs, nil
}

var _ OrganizationStore = (*OrganizationDataStore)(nil)
