package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/models"
)

func TestTagSync_PullCreatesRows(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.remoteTags = []api.RemoteTag{
		{PostRef: 1, Tag: models.ReadTag, CreatedAt: 50, UpdatedAt: 50},
		{PostRef: 2, Tag: models.ReadTag, CreatedAt: 40, UpdatedAt: 60, UntaggedAt: 60},
	}
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Sync(ctx, testSession()))

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.IsSync)
	assert.False(t, row.Tombstone())

	row, err = st.Tags.Get(ctx, 2, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Tombstone(), "removed remote record lands as tombstone")
	assert.True(t, row.IsSync)
}

func TestTagSync_NewerLocalDirtySurvivesAndIsPushed(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.remoteTags = []api.RemoteTag{
		{PostRef: 1, Tag: models.ReadTag, CreatedAt: 90, UpdatedAt: 90},
	}
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	// dirty local untag, strictly newer than the remote record
	require.NoError(t, st.Tags.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 0, UpdatedAt: 100,
		FeedURLHash: "fh", PostIDHash: "ph",
	}))

	require.NoError(t, svc.Sync(ctx, testSession()))

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Tombstone(), "local change must not be overwritten by older remote")
	assert.True(t, row.IsSync, "push must mark the row synced")

	patches := client.recordedTagPatches()
	require.Len(t, patches, 1)
	assert.Equal(t, []string{models.ReadTag}, patches[0].patch.Untag)
}

func TestTagSync_RemoteWinsTimestampTie(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.remoteTags = []api.RemoteTag{
		{PostRef: 1, Tag: models.ReadTag, CreatedAt: 100, UpdatedAt: 100},
	}
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	// dirty local untag with the same updated_at as the remote record
	require.NoError(t, st.Tags.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 0, UpdatedAt: 100,
		FeedURLHash: "fh", PostIDHash: "ph",
	}))

	require.NoError(t, svc.Sync(ctx, testSession()))

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.Tombstone(), "the record already on the server wins the tie")
	assert.True(t, row.IsSync)
	assert.Empty(t, client.recordedTagPatches(), "nothing dirty remains to push")
}

func TestTagSync_MergeKeepsContentHashes(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.remoteTags = []api.RemoteTag{
		{PostRef: 1, Tag: models.ReadTag, CreatedAt: 200, UpdatedAt: 200},
	}
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.Tags.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10, IsSync: true,
		FeedURLHash: "fh", PostIDHash: "ph",
	}))

	require.NoError(t, svc.Sync(ctx, testSession()))

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "fh", row.FeedURLHash)
	assert.Equal(t, "ph", row.PostIDHash)
	assert.Equal(t, int64(200), row.UpdatedAt)
}

func TestTagSync_PushSkipsRowsWithoutHashes(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.Tags.Put(ctx, models.Tag{
		PostRef: 1, Tag: models.ReadTag, CreatedAt: 10, UpdatedAt: 10,
	}))

	require.NoError(t, svc.Sync(ctx, testSession()))
	assert.Empty(t, client.recordedTagPatches())

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.False(t, row.IsSync, "unaddressable row stays dirty")
}

func TestTagPost_Lifecycle(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	tagged, err := svc.IsPostTagged(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.False(t, tagged)

	require.NoError(t, svc.TagPost(ctx, 1, "fh", "ph"))
	tagged, err = svc.IsPostTagged(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.True(t, tagged)

	// tagging twice is a no-op, the timestamps must not move
	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	before := row.UpdatedAt
	require.NoError(t, svc.TagPost(ctx, 1, "fh", "ph"))
	row, err = st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.Equal(t, before, row.UpdatedAt)

	require.NoError(t, svc.UntagPost(ctx, 1))
	tagged, err = svc.IsPostTagged(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.False(t, tagged)

	row, err = st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row, "untag leaves a tombstone, not an empty slot")
	assert.True(t, row.Tombstone())
	assert.Equal(t, "fh", row.FeedURLHash, "tombstone keeps hashes for the push")
}

func TestTagPostAndSync_PushesEagerly(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.TagPostAndSync(ctx, testSession(), 1, "fh", "ph"))

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.True(t, row.IsSync)

	patches := client.recordedTagPatches()
	require.Len(t, patches, 1)
	assert.Equal(t, []string{models.ReadTag}, patches[0].patch.Tag)
	assert.Equal(t, "fh", patches[0].feedURLHash)
}

func TestTagPostAndSync_RemoteFailureKeepsRowDirty(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.tagErr = errors.New("remote down")
	svc := NewTagService(st.Tags, client, testLogger())
	ctx := context.Background()

	err := svc.TagPostAndSync(ctx, testSession(), 1, "fh", "ph")
	require.Error(t, err)

	row, err := st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	require.NotNil(t, row, "local write survives the failed push")
	assert.False(t, row.IsSync)

	// next full sync retries the push
	client.tagErr = nil
	require.NoError(t, svc.Sync(ctx, testSession()))
	row, err = st.Tags.Get(ctx, 1, models.ReadTag)
	require.NoError(t, err)
	assert.True(t, row.IsSync)
}
