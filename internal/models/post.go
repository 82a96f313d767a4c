package models

// Post is one row of the post-metadata cache, keyed by the remote Ref with
// a secondary (FeedRef, IDHash) index for hash lookups and a
// (FeedRef, PublishedAt) index for timeline range scans.
type Post struct {
	Ref         int64
	FeedRef     int64
	IDHash      string // blake3 hash of the post id, base64url
	Title       string
	Link        string
	Summary     string
	PublishedAt int64 // unix seconds
	UpdatedAt   int64 // unix seconds

	// FetchedAt records when the local copy was last refreshed.
	FetchedAt int64 // unix milliseconds
}
