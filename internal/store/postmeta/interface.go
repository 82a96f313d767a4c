package postmeta

import (
	"context"

	"github.com/lightstands/standsync/internal/models"
)

// Repository is the post-metadata cache. Rows appear lazily through the
// fetch routines and are only removed by a full reset.
type Repository interface {
	// GetByRef returns the cached post, or nil when unknown.
	GetByRef(ctx context.Context, ref int64) (*models.Post, error)

	// GetByHash looks a post up by its feed and content-hash id.
	GetByHash(ctx context.Context, feedRef int64, idHash string) (*models.Post, error)

	// Upsert writes the post and reports whether a row for the same ref
	// already existed. The forward fetch uses that as its stop signal.
	Upsert(ctx context.Context, p models.Post) (existed bool, err error)

	// Newest returns the feed's post with the highest published_at, or nil.
	Newest(ctx context.Context, feedRef int64) (*models.Post, error)

	// Oldest returns the feed's post with the lowest published_at, or nil.
	Oldest(ctx context.Context, feedRef int64) (*models.Post, error)

	// AllOf returns every cached post of a feed ordered by publish time.
	AllOf(ctx context.Context, feedRef int64, desc bool) ([]models.Post, error)

	// MostRecent returns the newest cached post across all feeds, or nil.
	MostRecent(ctx context.Context) (*models.Post, error)

	// PublishedSince returns all posts with published_at >= ts, newest
	// first. Used for timeline assembly.
	PublishedSince(ctx context.Context, ts int64) ([]models.Post, error)

	// DeleteAll wipes the cache. Full reset only.
	DeleteAll(ctx context.Context) error
}
