package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/store"
)

// fakeClient is an in-memory api.Client. It applies feed-list patches to
// its own state so repeated syncs observe the server converging, and it
// records every mutating call for assertions.
type fakeClient struct {
	mu sync.Mutex

	feedLists   []api.FeedListMeta
	listDetails map[int64]api.FeedListDetail
	listPatches []recordedListPatch
	listErr     error

	remoteTags []api.RemoteTag
	tagPatches []recordedTagPatch
	tagErr     error

	feeds map[string]api.Feed
	posts map[string][]api.Post

	nextListID int64
}

type recordedListPatch struct {
	listID int64
	patch  api.FeedListPatch
}

type recordedTagPatch struct {
	feedURLHash string
	postIDHash  string
	patch       api.TagPatch
}

var _ api.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		listDetails: make(map[int64]api.FeedListDetail),
		feeds:       make(map[string]api.Feed),
		posts:       make(map[string][]api.Post),
		nextListID:  1000,
	}
}

func (c *fakeClient) CreateSession(ctx context.Context, username, password string) (api.Session, error) {
	return api.Session{AccessToken: "fake", UserID: 1}, nil
}

func (c *fakeClient) ListFeedLists(ctx context.Context, s api.Session) ([]api.FeedListMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]api.FeedListMeta(nil), c.feedLists...), nil
}

func (c *fakeClient) GetFeedList(ctx context.Context, s api.Session, listID int64) (api.FeedListDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.listDetails[listID]
	if !ok {
		return api.FeedListDetail{}, &api.Error{Status: 404, Code: api.CodeNotFound}
	}
	return d, nil
}

func (c *fakeClient) PatchFeedList(ctx context.Context, s api.Session, listID int64, patch api.FeedListPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return c.listErr
	}
	c.listPatches = append(c.listPatches, recordedListPatch{listID: listID, patch: patch})

	d := c.listDetails[listID]
	d.Rm = append(d.Rm, patch.Rm...)
	removed := make(map[uint64]bool, len(d.Rm))
	for _, id := range d.Rm {
		removed[id] = true
	}
	for _, e := range patch.In {
		if !removed[e.EUID] {
			d.In = append(d.In, e)
		}
	}
	var kept []api.ListEntry
	for _, e := range d.In {
		if !removed[e.EUID] {
			kept = append(kept, e)
		}
	}
	d.In = kept
	c.listDetails[listID] = d
	return nil
}

func (c *fakeClient) CreateFeedList(ctx context.Context, s api.Session, name string) (api.FeedListMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListID++
	meta := api.FeedListMeta{ID: c.nextListID, OwnerID: s.UserID, Name: name}
	c.feedLists = append(c.feedLists, meta)
	c.listDetails[meta.ID] = api.FeedListDetail{}
	return meta, nil
}

func (c *fakeClient) ListReadTags(ctx context.Context, s api.Session, userID int64, updatedSince int64) (api.TagPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tagErr != nil {
		return api.TagPage{}, c.tagErr
	}
	var page api.TagPage
	for _, t := range c.remoteTags {
		if t.UpdatedAt >= updatedSince {
			page.Tags = append(page.Tags, t)
		}
	}
	return page, nil
}

func (c *fakeClient) PatchPostTags(ctx context.Context, s api.Session, userID int64, feedURLHash, postIDHash string, patch api.TagPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tagErr != nil {
		return c.tagErr
	}
	c.tagPatches = append(c.tagPatches, recordedTagPatch{
		feedURLHash: feedURLHash, postIDHash: postIDHash, patch: patch,
	})
	return nil
}

func (c *fakeClient) GetFeedInfo(ctx context.Context, feedURLHash string) (api.Feed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.feeds[feedURLHash]
	if !ok {
		return api.Feed{}, &api.Error{Status: 404, Code: api.CodeNotFound}
	}
	return f, nil
}

func (c *fakeClient) GetFeedPosts(ctx context.Context, feedURLHash string, q api.PostQuery) (api.PostPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts := append([]api.Post(nil), c.posts[feedURLHash]...)
	sort.Slice(posts, func(i, j int) bool { return posts[i].PublishedAt < posts[j].PublishedAt })

	var window []api.Post
	for _, p := range posts {
		if q.PubSince != 0 && p.PublishedAt < q.PubSince {
			continue
		}
		if q.PubBefore != 0 && p.PublishedAt >= q.PubBefore {
			continue
		}
		window = append(window, p)
	}
	// a pub_before window pages backwards: serve the newest posts adjacent
	// to the boundary, still in ascending order
	if q.Limit > 0 && len(window) > q.Limit {
		if q.PubBefore != 0 {
			window = window[len(window)-q.Limit:]
		} else {
			window = window[:q.Limit]
		}
	}
	return api.PostPage{Posts: window}, nil
}

func (c *fakeClient) GetPost(ctx context.Context, feedURLHash, postIDHash string) (api.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.posts[feedURLHash] {
		if p.IDHash == postIDHash {
			return p, nil
		}
	}
	return api.Post{}, &api.Error{Status: 404, Code: api.CodeNotFound}
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) recordedListPatches() []recordedListPatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedListPatch(nil), c.listPatches...)
}

func (c *fakeClient) recordedTagPatches() []recordedTagPatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedTagPatch(nil), c.tagPatches...)
}

// setupStore opens an in-memory store with migrations applied.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testLogger() logging.Logger { return logging.NewDiscard() }

func testSession() api.Session { return api.Session{AccessToken: "t", UserID: 1} }
