package models

// Feed is one row of the feed-metadata cache: the remote public feed fields
// plus local bookkeeping. The cache is read-through and never authoritative.
type Feed struct {
	Ref           int64  // remote numeric reference, primary key
	URLHash       string // blake3 hash of the feed URL, base64url
	URL           string
	Title         string
	Link          string
	Description   string
	LastFetchedAt int64 // unix seconds, set by the remote

	// LastUsedAt is local-only and day-granularity write-throttled, so
	// rendering a feed page does not rewrite the row on every visit.
	LastUsedAt int64 // unix milliseconds
}
