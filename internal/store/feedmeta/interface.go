package feedmeta

import (
	"context"

	"github.com/lightstands/standsync/internal/models"
)

// Repository is the feed-metadata cache. It is read-through: rows appear on
// first access and are only removed by a full reset.
type Repository interface {
	// GetByRef returns the cached feed, or nil when unknown.
	GetByRef(ctx context.Context, ref int64) (*models.Feed, error)

	// GetByURLHash looks a feed up by the blake3 hash of its URL.
	GetByURLHash(ctx context.Context, urlHash string) (*models.Feed, error)

	// Upsert inserts the feed or updates the existing row, but only when the
	// remote copy's last_fetched_at is strictly newer than the cached one.
	// An equal timestamp is a no-op so repeated refreshes do not generate
	// change notifications in a loop.
	Upsert(ctx context.Context, feed models.Feed) error

	// Touch bumps last_used_at, writing at most once per day per feed.
	Touch(ctx context.Context, urlHash string, nowMS int64) error

	// DeleteAll wipes the cache. Full reset only.
	DeleteAll(ctx context.Context) error
}
