// Package orgcache holds the single-entry, time-expiring cache for the
// authenticated user's organization list. It decides when cached data can be
// trusted, when a remote fetch is required, coordinates concurrent callers,
// and reacts to identity changes.
package orgcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tavre/orgsync/pkg/api"
	"github.com/tavre/orgsync/pkg/identity"
	"github.com/tavre/orgsync/pkg/model"
	"github.com/tavre/orgsync/pkg/notify"
	"github.com/tavre/orgsync/pkg/store"
)

// MaxEntryAge bounds how long a durable cache entry is trusted.
const MaxEntryAge = 24 * time.Hour

// State distinguishes "never loaded" from "explicitly no data" from
// "loaded with data". The distinction is load-bearing: Unknown permits a
// fetch, Absent suppresses further non-forced fetches for the session, and
// Populated serves from memory.
type State int

const (
	StateUnknown State = iota
	StateAbsent
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// Fetcher performs the authenticated remote fetch of the organization list.
// A reachable server answering with a non-2xx status must be reported as
// *api.StatusError; any other error is treated as a transport failure.
type Fetcher interface {
	FetchOrganizations(ctx context.Context, accessToken string) ([]model.Organization, error)
}

// Options adjust a single GetOrganizations call.
type Options struct {
	// Force bypasses both the in-memory state and the durable entry.
	Force bool
	// AccessToken overrides the fetcher's own token resolution.
	AccessToken string
	// UserID overrides the identity source.
	UserID string
}

// Config wires a Cache to its collaborators.
type Config struct {
	Store    store.CacheStore
	Fetcher  Fetcher
	Identity identity.Source
	Flags    notify.FlagSink
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Cache owns the in-memory tri-state organization list for one session.
// GetOrganizations and the durable load are each self-serialized: concurrent
// callers of either await the in-flight execution's outcome instead of
// starting duplicate work. No error escapes the cache; every failure path
// degrades to "no organizations known".
type Cache struct {
	store    store.CacheStore
	fetcher  Fetcher
	identity identity.Source
	flags    notify.FlagSink
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	group       singleflight.Group
	unsubscribe func()

	mu    sync.Mutex // guards state and orgs
	state State
	orgs  []model.Organization
}

type getResult struct {
	state State
	orgs  []model.Organization
}

// New constructs a Cache, subscribes it to identity changes, and seeds it
// from durable storage in the background when an identity is already known.
// Close releases the subscription.
func New(cfg Config) *Cache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	flags := cfg.Flags
	if flags == nil {
		flags = notify.NewLogFlagSink(logger)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		store:    cfg.Store,
		fetcher:  cfg.Fetcher,
		identity: cfg.Identity,
		flags:    flags,
		notifier: cfg.Notifier,
		logger:   logger,
		now:      now,
		state:    StateUnknown,
	}

	if cfg.Identity != nil {
		c.unsubscribe = cfg.Identity.Subscribe(c.onIdentityChanged)

		ctx := context.Background()
		if userID, err := cfg.Identity.CurrentUserID(ctx); err == nil && userID != "" {
			// Best effort; callers do not wait for the seed.
			go c.loadFromDurable(ctx, userID)
		}
	}
	return c
}

// Close releases the identity-change subscription. The cache remains usable
// but no longer reacts to identity transitions.
func (c *Cache) Close() error {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	return nil
}

// GetOrganizations returns the organization list for the effective user,
// serving memory, then durable storage, then the remote fetcher. The
// returned State reports whether the list is populated, explicitly absent,
// or was never resolvable this session.
func (c *Cache) GetOrganizations(ctx context.Context, opts Options) ([]model.Organization, State) {
	v, _, _ := c.group.Do("organizations", func() (interface{}, error) {
		return c.getOrganizations(ctx, opts), nil
	})
	res := v.(getResult)
	return res.orgs, res.state
}

func (c *Cache) getOrganizations(ctx context.Context, opts Options) getResult {
	userID := opts.UserID
	if userID == "" && c.identity != nil {
		id, err := c.identity.CurrentUserID(ctx)
		if err != nil {
			c.logger.Warn("failed to resolve identity", "error", err)
		}
		userID = id
	}
	if userID == "" {
		// No identity: reset to unknown so a later resolvable identity is
		// not blocked by a remembered failure.
		return c.setState(StateUnknown, nil)
	}

	if !opts.Force {
		if res, ok := c.current(); ok {
			return res
		}
		c.loadFromDurable(ctx, userID)
		if res, ok := c.current(); ok && res.state == StatePopulated {
			return res
		}
	}

	orgs, err := c.fetcher.FetchOrganizations(ctx, opts.AccessToken)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Error("organization fetch rejected", "status", statusErr.Status)
			if c.notifier != nil {
				c.notifier.Notify(fmt.Sprintf("Could not load organizations: %s", statusErr.Status))
			}
		} else {
			c.logger.Warn("organization fetch failed", "error", err)
		}
		return c.setState(StateAbsent, nil)
	}

	entry := store.CacheEntry{
		Timestamp:     c.now().UnixMilli(),
		Organizations: orgs,
		UserID:        userID,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		c.logger.Warn("failed to persist organizations", "error", err)
	}
	return c.setState(StatePopulated, orgs)
}

// loadFromDurable populates the in-memory state from the durable entry when
// it belongs to userID and is younger than MaxEntryAge. A missing, stale, or
// wrong-user entry is a strict no-op: the state is left untouched and the
// entry is never deleted. Self-serialized like GetOrganizations.
func (c *Cache) loadFromDurable(ctx context.Context, userID string) {
	c.group.Do("durable", func() (interface{}, error) {
		entry, err := c.store.Get(ctx)
		if err != nil {
			c.logger.Warn("failed to read durable cache entry", "error", err)
			return nil, nil
		}
		if entry == nil {
			return nil, nil
		}
		if entry.UserID != userID {
			c.logger.Debug("ignoring durable entry for different user")
			return nil, nil
		}
		age := c.now().Sub(time.UnixMilli(entry.Timestamp))
		if age >= MaxEntryAge {
			c.logger.Debug("ignoring stale durable entry", "age", age)
			return nil, nil
		}
		c.setState(StatePopulated, entry.Organizations)
		return nil, nil
	})
}

// OrganizationCount returns the length of the populated list, or 0 when the
// state is unknown or absent.
func (c *Cache) OrganizationCount() int {
	res := c.snapshot()
	if res.state != StatePopulated {
		return 0
	}
	return len(res.orgs)
}

// onIdentityChanged resets the in-memory state when the identity becomes
// unknown. The flag is republished so consumers observe the transition.
func (c *Cache) onIdentityChanged(change identity.Change) {
	if change.UserID != "" {
		return
	}
	c.setState(StateUnknown, nil)
}

// current returns the in-memory state when it short-circuits a non-forced
// read: both populated and explicitly absent states are served from memory.
func (c *Cache) current() (getResult, bool) {
	res := c.snapshot()
	if res.state == StateUnknown {
		return getResult{}, false
	}
	return res, true
}

func (c *Cache) snapshot() getResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return getResult{state: c.state, orgs: c.orgs}
}

// setState is the single mutation point; every transition recomputes and
// publishes the "has multiple organizations" flag.
func (c *Cache) setState(state State, orgs []model.Organization) getResult {
	c.mu.Lock()
	c.state = state
	c.orgs = orgs
	c.mu.Unlock()
	c.flags.PublishFlag(notify.FlagHasMultipleOrganizations, state == StatePopulated && len(orgs) > 1)
	return getResult{state: state, orgs: orgs}
}
