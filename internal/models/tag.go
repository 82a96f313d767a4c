package models

// ReadTag is the tag family the shipped client synchronizes with the remote.
// Additional families follow the same row shape but stay local-only.
const ReadTag = "_read"

// Tag is one row of the post-tag table, keyed by (PostRef, Tag).
//
// A row models a small state machine: absent → tagged (CreatedAt > 0) →
// untagged (CreatedAt == 0, a tombstone). Tombstones are kept so that a
// stale remote snapshot cannot resurrect an untagged post; only a full
// reset removes them.
type Tag struct {
	PostRef   int64
	Tag       string
	CreatedAt int64 // unix seconds; 0 marks a tombstone
	UpdatedAt int64 // unix seconds, advances on every local or remote change

	// Content-hash references needed to address the post remotely.
	// Empty until the post has been seen through the metadata cache.
	FeedURLHash string
	PostIDHash  string

	// IsSync reports whether the remote has acknowledged this row's state.
	// False marks a dirty row that the next push must reconcile.
	IsSync bool
}

// Tombstone reports whether the row records a removed tag.
func (t Tag) Tombstone() bool { return t.CreatedAt == 0 }

// Addressable reports whether the row carries the content hashes required
// to push it to the remote.
func (t Tag) Addressable() bool { return t.FeedURLHash != "" && t.PostIDHash != "" }
