package settings

import (
	"context"
	"time"
)

// Repository holds device-local settings and sync watermarks. Nothing in
// here is synchronized to the server.
type Repository interface {
	// Get returns the raw value for key, or "" with found=false when the
	// key was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored key/value pair.
	List(ctx context.Context) (map[string]string, error)

	// DeviceID returns the stable identifier of this installation,
	// generating and persisting one on first call.
	DeviceID(ctx context.Context) (string, error)

	// DefaultFilterTag returns the tag expression applied to timelines when
	// the user has not chosen one.
	DefaultFilterTag(ctx context.Context) (string, error)
	SetDefaultFilterTag(ctx context.Context, tag string) error

	// LastFullSync returns the wall-clock time (epoch ms) the last full sync
	// round finished, or 0 when none ran yet.
	LastFullSync(ctx context.Context) (int64, error)
	SetLastFullSync(ctx context.Context, atMS int64) error

	// LastSyncTime returns the per-resource watermark for the given tag
	// parts, or 0 when the resource never synced.
	LastSyncTime(ctx context.Context, tag ...string) (int64, error)
	SetLastSyncTime(ctx context.Context, atMS int64, tag ...string) error

	// MeetsSyncTime reports whether at least period has passed since the
	// tagged resource last synced. A resource that never synced always
	// meets the bar.
	MeetsSyncTime(ctx context.Context, period time.Duration, tag ...string) (bool, error)

	// ResetSyncTimes clears every per-resource watermark.
	ResetSyncTimes(ctx context.Context) error
}
