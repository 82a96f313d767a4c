// Package feedhash computes the content hashes the remote uses to address
// feeds and posts: blake3-256, base64url-encoded without padding.
package feedhash

import (
	"encoding/base64"

	"lukechampine.com/blake3"
)

func sum(data []byte) string {
	h := blake3.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// FeedURL hashes a feed URL for remote addressing.
func FeedURL(url string) string { return sum([]byte(url)) }

// PostID hashes a post's id (typically its guid or link).
func PostID(id string) string { return sum([]byte(id)) }
