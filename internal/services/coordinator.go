package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/store"
)

// Resource names one independently synchronizable slice of state.
type Resource string

const (
	ResourceTags      Resource = "tags"
	ResourceFeedLists Resource = "feedlists"
	ResourcePosts     Resource = "posts"
)

// AllResources is the default sync set, in no particular order.
var AllResources = []Resource{ResourceTags, ResourceFeedLists, ResourcePosts}

// ErrSyncBusy is returned when a sync round is requested for a resource
// that is already syncing.
var ErrSyncBusy = errors.New("sync already running for resource")

// Coordinator owns the mutual exclusion between sync rounds. At most one
// round runs per resource at any time; overlapping requests fail fast with
// ErrSyncBusy instead of queueing. It also tracks per-resource outcomes and
// the last-full-sync wall clock.
type Coordinator struct {
	tags  *TagService
	lists *FeedListService
	posts *PostService
	store *store.Store
	log   logging.Logger

	// guards busy and lastErr
	mu      sync.Mutex
	busy    map[Resource]bool
	lastErr map[Resource]error
}

func NewCoordinator(tags *TagService, lists *FeedListService, posts *PostService, st *store.Store, log logging.Logger) *Coordinator {
	return &Coordinator{
		tags:    tags,
		lists:   lists,
		posts:   posts,
		store:   st,
		log:     log.With("service", "coordinator"),
		busy:    make(map[Resource]bool),
		lastErr: make(map[Resource]error),
	}
}

// acquire marks every requested resource busy, all or nothing. When any of
// them is already busy nothing is marked and ErrSyncBusy is returned.
func (c *Coordinator) acquire(resources []Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resources {
		if c.busy[r] {
			return fmt.Errorf("%w: %s", ErrSyncBusy, r)
		}
	}
	for _, r := range resources {
		c.busy[r] = true
	}
	return nil
}

func (c *Coordinator) release(r Resource, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[r] = false
	c.lastErr[r] = err
}

// Busy reports whether a sync round is currently running for the resource.
func (c *Coordinator) Busy(r Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[r]
}

// LastError returns the outcome of the resource's most recent round, nil
// when it succeeded or never ran.
func (c *Coordinator) LastError(r Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr[r]
}

// Run executes one sync round for the given resources (all of them when
// none are named), fanning out one goroutine per resource. The rounds are
// independent: one failing does not cancel the others, and the joined error
// reports every failure. The last-full-sync clock is advanced even on
// failure so a persistently broken resource cannot turn the periodic
// trigger into a busy loop.
func (c *Coordinator) Run(ctx context.Context, sess api.Session, resources ...Resource) error {
	if len(resources) == 0 {
		resources = AllResources
	}
	if err := c.acquire(resources); err != nil {
		return err
	}
	defer func() {
		if err := c.store.Settings.SetLastFullSync(ctx, time.Now().UnixMilli()); err != nil {
			c.log.Warn(ctx, "failed to record sync time", "error", err)
		}
	}()

	var g errgroup.Group
	for _, r := range resources {
		g.Go(func() error {
			err := c.syncOne(ctx, sess, r)
			c.release(r, err)
			if err != nil {
				return fmt.Errorf("%s: %w", r, err)
			}
			c.log.Info(ctx, "resource synced", "resource", r)
			return nil
		})
	}
	return g.Wait()
}

func (c *Coordinator) syncOne(ctx context.Context, sess api.Session, r Resource) error {
	switch r {
	case ResourceTags:
		return c.tags.Sync(ctx, sess)
	case ResourceFeedLists:
		return c.lists.SyncAll(ctx, sess)
	case ResourcePosts:
		return c.posts.SyncAllPostMeta(ctx)
	default:
		return fmt.Errorf("unknown resource %q", r)
	}
}

// ShouldSync reports whether at least period has passed since the last
// full sync round.
func (c *Coordinator) ShouldSync(ctx context.Context, period time.Duration) (bool, error) {
	last, err := c.store.Settings.LastFullSync(ctx)
	if err != nil {
		return false, err
	}
	return last+period.Milliseconds() <= time.Now().UnixMilli(), nil
}

// ResetData wipes all synchronized state and caches. Every resource is
// marked busy for the duration so no sync round can observe a half-wiped
// store.
func (c *Coordinator) ResetData(ctx context.Context) error {
	if err := c.acquire(AllResources); err != nil {
		return err
	}
	defer func() {
		for _, r := range AllResources {
			c.release(r, nil)
		}
	}()
	if err := c.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset local data: %w", err)
	}
	return nil
}
