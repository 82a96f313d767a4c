package feedlists

import (
	"context"

	"github.com/lightstands/standsync/internal/models"
)

// Repository describes the feed-list tables. A list row carries the
// remote-authoritative metadata (owner, name, tags); membership lives in
// the include/exclude tables, where exclusion is append-only and always
// wins over inclusion of the same EUID.
type Repository interface {
	// All returns every local list with its full membership.
	All(ctx context.Context) ([]models.FeedList, error)

	// Get returns one list with membership, or nil when unknown locally.
	Get(ctx context.Context, listID int64) (*models.FeedList, error)

	// Create inserts a new list row together with any initial membership.
	Create(ctx context.Context, list models.FeedList) error

	// BulkDelete removes lists that no longer exist remotely.
	BulkDelete(ctx context.Context, listIDs []int64) error

	// ReplaceTags overwrites a list's tags with the remote's.
	ReplaceTags(ctx context.Context, listID int64, tags []string) error

	// Merge applies remote deltas in one transaction: appends excludes,
	// drops any include whose EUID is now excluded, and adds the new
	// includes except those the exclude set already covers.
	Merge(ctx context.Context, listID int64, includes []models.ListEntry, excludes []uint64) error

	// Exclude removes one include and records its EUID in the exclude set,
	// atomically. This is the local remove-feed fast path.
	Exclude(ctx context.Context, listID int64, euid uint64) error

	// IncludedFeedHashes returns the distinct feed-URL hashes that are an
	// active member of any list.
	IncludedFeedHashes(ctx context.Context) ([]string, error)

	// DeleteAll wipes all list tables. Full reset only.
	DeleteAll(ctx context.Context) error
}
