package stores

import (
	"context"
	"errors"

	"github.com/tavre/orgsync/server/model"
)

var ErrOrganizationNotFound = errors.New("organization not found")
var ErrOrganizationExists = errors.New("organization already exists")

// OrganizationStore abstracts directory persistence (can be swapped between
// memory, BoltDB, and Cloud Datastore implementations).
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, id string, updateFn func(model.Organization) (model.Organization, error)) error
	DeleteOrganization(ctx context.Context, id string) error
	// ListOrganizationsForUser returns every organization the user is a
	// member of, sorted by name.
	ListOrganizationsForUser(ctx context.Context, userID string) ([]*model.Organization, error)
}
