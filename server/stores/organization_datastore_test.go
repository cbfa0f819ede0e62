package stores

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/tavre/orgsync/server/model"
)

func TestOrganizationEntityRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Microsecond)
	org := &model.Organization{
		ID:          "org1",
		Name:        "acme",
		OwnerUserID: "42",
		Type:        model.OrganizationTypeTeam,
		Members: map[string]model.Role{
			"42": model.RoleOwner,
			"7":  model.RoleAdmin,
			"9":  model.RoleMember,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	got := fromEntity(toEntity(org))

	assert.Equal(t, org.ID, got.ID)
	assert.Equal(t, org.Name, got.Name)
	assert.Equal(t, org.OwnerUserID, got.OwnerUserID)
	assert.Equal(t, org.Type, got.Type)
	assert.Equal(t, org.Members, got.Members)
	assert.Equal(t, org.CreatedAt, got.CreatedAt)
}

// setupOrganizationDataStore connects to the datastore emulator configured
// through TEST_DATASTORE_PROJECT; the test is skipped when unset.
func setupOrganizationDataStore(t *testing.T) (*OrganizationDataStore, context.Context) {
	t.Helper()
	projectID := os.Getenv("TEST_DATASTORE_PROJECT")
	if projectID == "" {
		t.Skip("TEST_DATASTORE_PROJECT not set; skipping datastore test")
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if host := os.Getenv("TEST_DATASTORE_EMULATOR_HOST"); host != "" {
		opts = append(opts, option.WithEndpoint(host), option.WithoutAuthentication())
	}
	client, err := datastore.NewClient(ctx, projectID, opts...)
	require.NoError(t, err, "failed to create datastore client")

	store := NewOrganizationDataStore(slog.New(slog.NewTextHandler(os.Stderr, nil)), client)

	// Clear organization data left over from previous runs.
	q := datastore.NewQuery(organizationKind).KeysOnly()
	keys, err := client.GetAll(ctx, q, nil)
	if err == nil && len(keys) > 0 {
		require.NoError(t, client.DeleteMulti(ctx, keys), "failed to clear existing organization data")
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return store, ctx
}

func TestOrganizationDataStore_CRUD(t *testing.T) {
	store, ctx := setupOrganizationDataStore(t)

	org := &model.Organization{
		ID: "org1", Name: "acme", OwnerUserID: "42",
		Type:    model.OrganizationTypeTeam,
		Members: map[string]model.Role{"42": model.RoleOwner},
	}
	require.NoError(t, store.CreateOrganization(ctx, org))
	assert.ErrorIs(t, store.CreateOrganization(ctx, org), ErrOrganizationExists)

	ret, err := store.GetOrganizationByID(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, "acme", ret.Name)
	assert.Equal(t, model.RoleOwner, ret.RoleOf("42"))

	err = store.UpdateOrganization(ctx, "org1", func(o model.Organization) (model.Organization, error) {
		o.Members["7"] = model.RoleMember
		return o, nil
	})
	require.NoError(t, err)

	orgs, err := store.ListOrganizationsForUser(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, orgs, 1)

	require.NoError(t, store.DeleteOrganization(ctx, "org1"))
	_, err = store.GetOrganizationByID(ctx, "org1")
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}
