package models

// DefaultListTag marks the user's default feed list on the remote.
const DefaultListTag = "_default"

// ListEntry is one active membership of a feed list: the blake3 hash of the
// feed URL plus the EUID minted when the feed was added.
type ListEntry struct {
	FeedURLHash string
	EUID        uint64
}

// FeedList is the local copy of one remote feed list.
//
// Includes ordering is irrelevant. Excludes is append-only on the client:
// once an EUID lands there it never leaves (except on full reset), and an
// excluded EUID always wins over the same EUID appearing in Includes.
// Tags are remote-authoritative and never edited locally.
type FeedList struct {
	ID       int64
	OwnerID  int64
	Name     string
	Tags     []string
	Includes []ListEntry
	Excludes []uint64
}

// IncludesEUID reports whether id is an active member of the list.
func (l *FeedList) IncludesEUID(id uint64) bool {
	for _, e := range l.Includes {
		if e.EUID == id {
			return true
		}
	}
	return false
}

// ExcludesEUID reports whether id has been excluded from the list.
func (l *FeedList) ExcludesEUID(id uint64) bool {
	for _, e := range l.Excludes {
		if e == id {
			return true
		}
	}
	return false
}

// HasTag reports whether the remote has tagged the list with tag.
func (l *FeedList) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
