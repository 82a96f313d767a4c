// Package api defines the typed contract with the remote feed-reading
// service: request/response shapes, the client interface the sync engine
// depends on, sessions, and the error taxonomy. The HTTP implementation
// lives in the rest subpackage.
package api

import "context"

// FeedListMeta is the lightweight remote description of one feed list.
type FeedListMeta struct {
	ID      int64    `json:"id"`
	OwnerID int64    `json:"owner_id"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
}

// ListEntry is one active feed-list membership on the wire.
type ListEntry struct {
	FeedURLHash string `json:"feed_url_hash"`
	EUID        uint64 `json:"euid"`
}

// FeedListDetail is the full remote state of one list: active entries and
// the set of removed (excluded) EUIDs.
type FeedListDetail struct {
	In []ListEntry `json:"in"`
	Rm []uint64    `json:"rm"`
}

// FeedListPatch carries local-only changes to the remote. Both halves may
// be empty, in which case no request should be sent.
type FeedListPatch struct {
	In []ListEntry `json:"in,omitempty"`
	Rm []uint64    `json:"rm,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p FeedListPatch) IsEmpty() bool { return len(p.In) == 0 && len(p.Rm) == 0 }

// RemoteTag is one read-tag record as the remote reports it.
type RemoteTag struct {
	PostRef    int64  `json:"post_ref"`
	Tag        string `json:"tag"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
	UntaggedAt int64  `json:"untagged_at,omitempty"`
}

// Removed reports whether the record is a remote tombstone.
func (t RemoteTag) Removed() bool { return t.UntaggedAt != 0 && t.UntaggedAt >= t.CreatedAt }

// TagPage is one page of the read-tag listing.
type TagPage struct {
	Tags    []RemoteTag `json:"tags"`
	HasNext bool        `json:"has_next"`
}

// TagPatch adds and/or removes tag families on one post.
type TagPatch struct {
	Tag   []string `json:"tag,omitempty"`
	Untag []string `json:"untag,omitempty"`
}

// Feed is the remote public feed metadata.
type Feed struct {
	Ref           int64  `json:"ref"`
	URLHash       string `json:"url_blake3"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Description   string `json:"description"`
	LastFetchedAt int64  `json:"last_fetched_at"`
}

// Post is the remote public post metadata.
type Post struct {
	Ref         int64  `json:"ref"`
	FeedRef     int64  `json:"feed_ref"`
	IDHash      string `json:"id_blake3"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Summary     string `json:"summary"`
	PublishedAt int64  `json:"published_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// PostQuery selects a publish-time window of a feed's posts. Zero values
// mean "unset". A PubSince window anchors at its lower bound and a
// PubBefore window at its upper bound; either way the remote returns the
// page in non-decreasing publish-time order.
type PostQuery struct {
	PubSince  int64
	PubBefore int64
	Limit     int
}

// PostPage is one page of a feed's posts.
type PostPage struct {
	Posts []Post `json:"posts"`
}

// Client is the remote API collaborator. Every method takes a context and
// returns either a value or a typed error; methods never panic on expected
// failure modes and are individually retryable (idempotent at the HTTP
// layer).
type Client interface {
	// CreateSession exchanges credentials for a session.
	CreateSession(ctx context.Context, username, password string) (Session, error)

	// ListFeedLists fetches metadata of all of the user's feed lists.
	ListFeedLists(ctx context.Context, s Session) ([]FeedListMeta, error)

	// GetFeedList fetches the full include/exclude state of one list.
	GetFeedList(ctx context.Context, s Session, listID int64) (FeedListDetail, error)

	// PatchFeedList applies local include/exclude changes to the remote.
	PatchFeedList(ctx context.Context, s Session, listID int64, patch FeedListPatch) error

	// CreateFeedList creates a new, empty remote list.
	CreateFeedList(ctx context.Context, s Session, name string) (FeedListMeta, error)

	// ListReadTags pages the user's read tags updated at or after
	// updatedSince (0 requests everything).
	ListReadTags(ctx context.Context, s Session, userID int64, updatedSince int64) (TagPage, error)

	// PatchPostTags tags or untags one post, addressed by content hashes.
	PatchPostTags(ctx context.Context, s Session, userID int64, feedURLHash, postIDHash string, patch TagPatch) error

	// GetFeedInfo fetches public feed metadata by URL hash.
	GetFeedInfo(ctx context.Context, feedURLHash string) (Feed, error)

	// GetFeedPosts fetches a publish-time window of a feed's posts.
	GetFeedPosts(ctx context.Context, feedURLHash string, q PostQuery) (PostPage, error)

	// GetPost fetches one post's metadata by content hashes.
	GetPost(ctx context.Context, feedURLHash, postIDHash string) (Post, error)

	// Close releases transport resources.
	Close() error
}
