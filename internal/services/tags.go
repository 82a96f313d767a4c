// Package services implements the resource synchronization logic on top of
// the local store and the remote API client: tag sync, feed-list sync,
// post/feed metadata fetching, timeline assembly, and the coordinator that
// serializes sync rounds.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/models"
	"github.com/lightstands/standsync/internal/store/tags"
)

// TagService keeps the local post-tag table and the remote read-tag store
// converged. Local writes are optimistic: they land in the table immediately
// with is_sync=0 and are pushed on the next sync round (or eagerly by the
// *AndSync variants).
type TagService struct {
	repo   tags.Repository
	client api.Client
	log    logging.Logger
}

func NewTagService(repo tags.Repository, client api.Client, log logging.Logger) *TagService {
	return &TagService{repo: repo, client: client, log: log.With("service", "tags")}
}

// Sync runs one pull-then-push round for the read-tag family.
//
// The pull pages remote records updated at or after the local watermark (the
// max updated_at among synced rows) and merges each one newer-wins, with the
// remote winning timestamp ties: a record already accepted by the server
// outranks a concurrent local change with the same updated_at. The push then
// sends every dirty row and marks it synced on acknowledgement.
func (s *TagService) Sync(ctx context.Context, sess api.Session) error {
	if err := s.pull(ctx, sess); err != nil {
		return fmt.Errorf("failed to pull tags: %w", err)
	}
	if err := s.push(ctx, sess); err != nil {
		return fmt.Errorf("failed to push tags: %w", err)
	}
	return nil
}

func (s *TagService) pull(ctx context.Context, sess api.Session) error {
	since, err := s.repo.LatestSyncedUpdate(ctx, models.ReadTag)
	if err != nil {
		return err
	}
	for {
		page, err := s.client.ListReadTags(ctx, sess, sess.UserID, since)
		if err != nil {
			return err
		}
		var maxSeen int64
		for _, remote := range page.Tags {
			if err := s.merge(ctx, remote); err != nil {
				return err
			}
			if remote.UpdatedAt > maxSeen {
				maxSeen = remote.UpdatedAt
			}
		}
		if !page.HasNext || maxSeen <= since {
			return nil
		}
		since = maxSeen
	}
}

// merge applies one remote record to the local table.
func (s *TagService) merge(ctx context.Context, remote api.RemoteTag) error {
	local, err := s.repo.Get(ctx, remote.PostRef, remote.Tag)
	if err != nil {
		return err
	}
	// A dirty local change that is strictly newer survives; it will be
	// pushed in the same round. Everything else yields to the remote.
	if local != nil && !local.IsSync && local.UpdatedAt > remote.UpdatedAt {
		return nil
	}
	row := models.Tag{
		PostRef:   remote.PostRef,
		Tag:       remote.Tag,
		CreatedAt: remote.CreatedAt,
		UpdatedAt: remote.UpdatedAt,
		IsSync:    true,
	}
	if remote.Removed() {
		row.CreatedAt = 0
	}
	if local != nil {
		row.FeedURLHash = local.FeedURLHash
		row.PostIDHash = local.PostIDHash
	}
	return s.repo.Put(ctx, row)
}

func (s *TagService) push(ctx context.Context, sess api.Session) error {
	dirty, err := s.repo.Dirty(ctx, models.ReadTag)
	if err != nil {
		return err
	}
	var errs []error
	for _, row := range dirty {
		if !row.Addressable() {
			s.log.Debug(ctx, "skipping dirty tag without content hashes",
				"post_ref", row.PostRef, "tag", row.Tag)
			continue
		}
		if err := s.pushOne(ctx, sess, row); err != nil {
			s.log.Warn(ctx, "failed to push tag, keeping dirty",
				"post_ref", row.PostRef, "tag", row.Tag, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *TagService) pushOne(ctx context.Context, sess api.Session, row models.Tag) error {
	patch := api.TagPatch{Tag: []string{row.Tag}}
	if row.Tombstone() {
		patch = api.TagPatch{Untag: []string{row.Tag}}
	}
	err := s.client.PatchPostTags(ctx, sess, sess.UserID, row.FeedURLHash, row.PostIDHash, patch)
	if err != nil {
		return err
	}
	return s.repo.MarkSynced(ctx, row.PostRef, row.Tag)
}

// TagPost marks the post read locally. Already-read posts are a no-op;
// otherwise the row is written dirty and picked up by the next sync.
func (s *TagService) TagPost(ctx context.Context, postRef int64, feedURLHash, postIDHash string) error {
	cur, err := s.repo.Get(ctx, postRef, models.ReadTag)
	if err != nil {
		return err
	}
	if cur != nil && !cur.Tombstone() {
		return nil
	}
	now := time.Now().Unix()
	return s.repo.Put(ctx, models.Tag{
		PostRef:     postRef,
		Tag:         models.ReadTag,
		CreatedAt:   now,
		UpdatedAt:   now,
		FeedURLHash: feedURLHash,
		PostIDHash:  postIDHash,
	})
}

// UntagPost marks the post unread locally by writing a dirty tombstone. The
// tombstone stays in the table so a stale remote snapshot cannot flip the
// post back to read.
func (s *TagService) UntagPost(ctx context.Context, postRef int64) error {
	cur, err := s.repo.Get(ctx, postRef, models.ReadTag)
	if err != nil {
		return err
	}
	if cur == nil || cur.Tombstone() {
		return nil
	}
	return s.repo.Put(ctx, models.Tag{
		PostRef:     postRef,
		Tag:         models.ReadTag,
		CreatedAt:   0,
		UpdatedAt:   time.Now().Unix(),
		FeedURLHash: cur.FeedURLHash,
		PostIDHash:  cur.PostIDHash,
	})
}

// TagPostAndSync tags the post locally and immediately tries to push that
// one row. On remote failure the local row stays dirty and the error is
// returned; the state is still consistent and the next Sync retries.
func (s *TagService) TagPostAndSync(ctx context.Context, sess api.Session, postRef int64, feedURLHash, postIDHash string) error {
	if err := s.TagPost(ctx, postRef, feedURLHash, postIDHash); err != nil {
		return err
	}
	return s.syncOne(ctx, sess, postRef)
}

// UntagPostAndSync is the eager counterpart of UntagPost.
func (s *TagService) UntagPostAndSync(ctx context.Context, sess api.Session, postRef int64) error {
	if err := s.UntagPost(ctx, postRef); err != nil {
		return err
	}
	return s.syncOne(ctx, sess, postRef)
}

func (s *TagService) syncOne(ctx context.Context, sess api.Session, postRef int64) error {
	row, err := s.repo.Get(ctx, postRef, models.ReadTag)
	if err != nil {
		return err
	}
	if row == nil || row.IsSync {
		return nil
	}
	if !row.Addressable() {
		return nil
	}
	if err := s.pushOne(ctx, sess, *row); err != nil {
		return fmt.Errorf("failed to push tag for post %d: %w", postRef, err)
	}
	return nil
}

// IsPostTagged reports whether the post is currently read locally.
func (s *TagService) IsPostTagged(ctx context.Context, postRef int64, tag string) (bool, error) {
	row, err := s.repo.Get(ctx, postRef, tag)
	if err != nil {
		return false, err
	}
	return row != nil && !row.Tombstone(), nil
}

// Reset wipes the tag table, tombstones included.
func (s *TagService) Reset(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}
