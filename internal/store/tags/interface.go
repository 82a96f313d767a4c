package tags

import (
	"context"

	"github.com/lightstands/standsync/internal/models"
)

// Repository describes the post-tag table operations the sync engine needs.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Get returns the row for (postRef, tag), or nil when absent.
	// Tombstones are returned like any other row.
	Get(ctx context.Context, postRef int64, tag string) (*models.Tag, error)

	// Put inserts or fully overwrites the row for (t.PostRef, t.Tag) inside
	// one transaction, so a racing background sync cannot interleave.
	Put(ctx context.Context, t models.Tag) error

	// Delete removes the row. Used when the remote confirms an untag; local
	// untags write tombstones via Put instead.
	Delete(ctx context.Context, postRef int64, tag string) error

	// Dirty returns all rows of the family whose change the remote has not
	// acknowledged yet (is_sync = 0).
	Dirty(ctx context.Context, tag string) ([]models.Tag, error)

	// LatestSyncedUpdate returns the max updated_at among synced rows of the
	// family, or 0 when none exist. Used as the pull watermark.
	LatestSyncedUpdate(ctx context.Context, tag string) (int64, error)

	// MarkSynced flags the row as acknowledged by the remote.
	MarkSynced(ctx context.Context, postRef int64, tag string) error

	// DeleteAll wipes the table, tombstones included. Full reset only.
	DeleteAll(ctx context.Context) error
}
