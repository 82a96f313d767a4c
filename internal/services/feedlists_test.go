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

func TestFeedListSyncAll_MirrorsRemoteListSet(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.feedLists = []api.FeedListMeta{
		{ID: 10, OwnerID: 1, Name: "news", Tags: []string{models.DefaultListTag}},
	}
	client.listDetails[10] = api.FeedListDetail{
		In: []api.ListEntry{{FeedURLHash: "h1", EUID: 11}},
	}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	// a stale local list the remote no longer has
	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{ID: 99, OwnerID: 1, Name: "gone"}))

	require.NoError(t, svc.SyncAll(ctx, testSession()))

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.True(t, list.HasTag(models.DefaultListTag))
	assert.True(t, list.IncludesEUID(11))

	gone, err := st.FeedLists.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, gone, "lists deleted remotely disappear locally")

	def, err := svc.DefaultList(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, int64(10), def.ID)
}

func TestFeedListSyncList_TwoWayMerge(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.listDetails[10] = api.FeedListDetail{
		In: []api.ListEntry{
			{FeedURLHash: "h1", EUID: 11},
			{FeedURLHash: "h2", EUID: 12},
		},
		Rm: []uint64{13},
	}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{
		ID: 10, OwnerID: 1, Name: "news",
		Includes: []models.ListEntry{
			{FeedURLHash: "h1", EUID: 11},  // shared with remote
			{FeedURLHash: "h3", EUID: 13},  // remote removed it
			{FeedURLHash: "h4", EUID: 14},  // local only, must be pushed
		},
		Excludes: []uint64{15}, // local only, must be pushed
	}))

	require.NoError(t, svc.SyncList(ctx, testSession(), 10))

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	assert.True(t, list.IncludesEUID(12), "remote include gained locally")
	assert.False(t, list.IncludesEUID(13), "remote exclusion removes the local include")
	assert.True(t, list.ExcludesEUID(13))
	assert.True(t, list.IncludesEUID(14), "local-only include survives")

	patches := client.recordedListPatches()
	require.Len(t, patches, 1)
	patch := patches[0].patch
	require.Len(t, patch.In, 1)
	assert.Equal(t, uint64(14), patch.In[0].EUID)
	assert.Equal(t, []uint64{15}, patch.Rm)
}

func TestFeedListSyncList_Idempotent(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.listDetails[10] = api.FeedListDetail{
		In: []api.ListEntry{{FeedURLHash: "h1", EUID: 11}},
	}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{
		ID: 10, OwnerID: 1, Name: "news",
		Includes: []models.ListEntry{{FeedURLHash: "h4", EUID: 14}},
	}))

	require.NoError(t, svc.SyncList(ctx, testSession(), 10))
	require.Len(t, client.recordedListPatches(), 1)

	// second round: both sides already converged, nothing should move
	require.NoError(t, svc.SyncList(ctx, testSession(), 10))
	assert.Len(t, client.recordedListPatches(), 1, "converged sync must not patch again")
}

func TestFeedListSyncList_LocalExclusionNeverReadded(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	// remote still carries the entry the local side excluded
	client.listDetails[10] = api.FeedListDetail{
		In: []api.ListEntry{{FeedURLHash: "h2", EUID: 12}},
	}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{
		ID: 10, OwnerID: 1, Name: "news",
		Excludes: []uint64{12},
	}))

	require.NoError(t, svc.SyncList(ctx, testSession(), 10))

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, list.IncludesEUID(12), "exclusion always beats inclusion")
	assert.True(t, list.ExcludesEUID(12))

	// the exclusion is pushed so the remote converges too
	patches := client.recordedListPatches()
	require.Len(t, patches, 1)
	assert.Equal(t, []uint64{12}, patches[0].patch.Rm)
}

func TestFeedListSyncList_UnknownList(t *testing.T) {
	st := setupStore(t)
	svc := NewFeedListService(st.FeedLists, newFakeClient(), testLogger())

	err := svc.SyncList(context.Background(), testSession(), 404)
	require.ErrorIs(t, err, ErrUnknownList)
}

func TestAddFeed_OptimisticWithBestEffortPush(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.listDetails[10] = api.FeedListDetail{}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{ID: 10, OwnerID: 1, Name: "news"}))

	entry, synced, err := svc.AddFeed(ctx, testSession(), 10, "h9")
	require.NoError(t, err)
	assert.True(t, synced)
	assert.NotZero(t, entry.EUID)

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	assert.True(t, list.IncludesEUID(entry.EUID))
}

func TestAddFeed_RemoteFailureStillLandsLocally(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.listDetails[10] = api.FeedListDetail{}
	client.listErr = errors.New("remote down")
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{ID: 10, OwnerID: 1, Name: "news"}))

	entry, synced, err := svc.AddFeed(ctx, testSession(), 10, "h9")
	require.NoError(t, err)
	assert.False(t, synced)

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	assert.True(t, list.IncludesEUID(entry.EUID), "local write is the source of truth")
}

func TestRemoveFeed(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	client.listDetails[10] = api.FeedListDetail{
		In: []api.ListEntry{{FeedURLHash: "h1", EUID: 11}},
	}
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	require.NoError(t, st.FeedLists.Create(ctx, models.FeedList{
		ID: 10, OwnerID: 1, Name: "news",
		Includes: []models.ListEntry{{FeedURLHash: "h1", EUID: 11}},
	}))

	synced, err := svc.RemoveFeed(ctx, testSession(), 10, 11)
	require.NoError(t, err)
	assert.True(t, synced)

	list, err := st.FeedLists.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, list.IncludesEUID(11))
	assert.True(t, list.ExcludesEUID(11))
}

func TestNewList(t *testing.T) {
	st := setupStore(t)
	client := newFakeClient()
	svc := NewFeedListService(st.FeedLists, client, testLogger())
	ctx := context.Background()

	list, err := svc.NewList(ctx, testSession(), "research")
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, "research", list.Name)

	local, err := st.FeedLists.Get(ctx, list.ID)
	require.NoError(t, err)
	require.NotNil(t, local, "new list is mirrored locally right away")
}
