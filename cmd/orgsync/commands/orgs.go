package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tavre/orgsync/pkg/notify"
	"github.com/tavre/orgsync/pkg/orgcache"
	"github.com/tavre/orgsync/pkg/store"
)

// OrgsCmd is the parent command for organization operations.
type OrgsCmd struct {
	List  OrgsListCmd  `cmd:"list" help:"List the organizations you belong to."`
	Count OrgsCountCmd `cmd:"count" help:"Print how many organizations you belong to."`
}

type OrgsListCmd struct {
	Force bool `help:"Bypass the local cache and fetch from the server." short:"f"`
}

type OrgsCountCmd struct{}

// Run executes the list organizations command.
func (c *OrgsListCmd) Run(ctx *cliCtx, root *cli) error {
	cache, cleanup, err := setupCache(ctx, root)
	if err != nil {
		return err
	}
	defer cleanup()

	orgs, state := cache.GetOrganizations(ctx, orgcache.Options{Force: c.Force})
	switch state {
	case orgcache.StateUnknown:
		fmt.Println("Not logged in. Run 'orgsync login' first.")
		return nil
	case orgcache.StateAbsent:
		fmt.Println("No organizations available.")
		return nil
	}

	if len(orgs) == 0 {
		fmt.Println("You do not belong to any organizations.")
		return nil
	}
	fmt.Println("Organizations:")
	for _, org := range orgs {
		fmt.Printf("  - ID: %s, Name: %s, Role: %s\n", org.ID, org.Name, org.Role)
	}
	return nil
}

// Run executes the count organizations command.
func (c *OrgsCountCmd) Run(ctx *cliCtx, root *cli) error {
	cache, cleanup, err := setupCache(ctx, root)
	if err != nil {
		return err
	}
	defer cleanup()

	cache.GetOrganizations(ctx, orgcache.Options{})
	fmt.Println(cache.OrganizationCount())
	return nil
}

// setupCache wires the organization cache to the durable store, the API
// client and the keyring identity. The returned cleanup closes both the
// cache and the store.
func setupCache(ctx *cliCtx, root *cli) (*orgcache.Cache, func(), error) {
	client, source, err := setupClient(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	path, err := cachePath()
	if err != nil {
		return nil, nil, err
	}
	boltStore, err := store.NewBoltStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache store at %s: %w", path, err)
	}

	cache := orgcache.New(orgcache.Config{
		Store:    boltStore,
		Fetcher:  client,
		Identity: source,
		Flags:    notify.NewLogFlagSink(ctx.Logger),
		Notifier: notify.StderrNotifier{},
		Logger:   ctx.Logger,
	})
	cleanup := func() {
		cache.Close()
		boltStore.Close()
	}
	return cache, cleanup, nil
}

// cachePath resolves the bolt file holding the durable cache entry,
// ORGSYNC_CACHE_PATH overriding the default under the user's home directory.
func cachePath() (string, error) {
	if path := os.Getenv("ORGSYNC_CACHE_PATH"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".orgsync")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, "orgcache.db"), nil
}
