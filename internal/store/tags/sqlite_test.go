package tags

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightstands/standsync/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE post_tags (
  post_ref      INTEGER NOT NULL,
  tag           TEXT    NOT NULL,
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL,
  feed_url_hash TEXT    NOT NULL DEFAULT '',
  post_id_hash  TEXT    NOT NULL DEFAULT '',
  is_sync       INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (post_ref, tag)
);
`)
	require.NoError(t, err)
	return db
}

func TestPut_InsertAndOverwrite(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 100, UpdatedAt: 100,
		FeedURLHash: "fh", PostIDHash: "ph",
	}))

	got, err := r.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.CreatedAt)
	assert.False(t, got.IsSync)

	// untag: overwrite with a tombstone
	require.NoError(t, r.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 0, UpdatedAt: 110,
		FeedURLHash: "fh", PostIDHash: "ph",
	}))

	got, err = r.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Tombstone())
	assert.Equal(t, int64(110), got.UpdatedAt)
}

func TestGet_AbsentReturnsNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	got, err := r.Get(context.Background(), 99, models.ReadTag)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDirty_OnlyUnsyncedOfFamily(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10}))
	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 2, Tag: models.ReadTag, CreatedAt: 20, UpdatedAt: 20, IsSync: true}))
	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 3, Tag: "_star", CreatedAt: 30, UpdatedAt: 30}))

	dirty, err := r.Dirty(ctx, models.ReadTag)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, int64(1), dirty[0].PostRef)
}

func TestLatestSyncedUpdate(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	// empty table: watermark is zero
	w, err := r.LatestSyncedUpdate(ctx, models.ReadTag)
	require.NoError(t, err)
	assert.Zero(t, w)

	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 50, IsSync: true}))
	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 2, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 90, IsSync: true}))
	// dirty rows don't advance the watermark
	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 3, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 999}))

	w, err = r.LatestSyncedUpdate(ctx, models.ReadTag)
	require.NoError(t, err)
	assert.Equal(t, int64(90), w)
}

func TestMarkSynced(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10}))
	require.NoError(t, r.MarkSynced(ctx, 1, models.ReadTag))

	got, err := r.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.True(t, got.IsSync)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10}))
	require.NoError(t, r.Put(ctx, models.Tag{PostRef: 2, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10}))

	require.NoError(t, r.Delete(ctx, 1, models.ReadTag))
	got, err := r.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.DeleteAll(ctx))
	got, err = r.Get(ctx, 2, models.ReadTag)
	require.NoError(t, err)
	assert.Nil(t, got)
}
