package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/euid"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/models"
	"github.com/lightstands/standsync/internal/store/feedlists"
)

// ErrUnknownList is returned when a list id is not known locally.
var ErrUnknownList = errors.New("feed list not known locally")

// FeedListService converges local and remote feed-list membership.
//
// List existence, name and tags are remote-authoritative: SyncAll creates
// and deletes local lists to match the server. Membership converges by set
// merge: both sides exchange their missing includes and excludes, and an
// exclusion of an EUID permanently beats its inclusion on both sides.
type FeedListService struct {
	repo   feedlists.Repository
	client api.Client
	log    logging.Logger
}

func NewFeedListService(repo feedlists.Repository, client api.Client, log logging.Logger) *FeedListService {
	return &FeedListService{repo: repo, client: client, log: log.With("service", "feedlists")}
}

// SyncAll reconciles the set of lists with the remote, then syncs each
// list's membership concurrently. Per-list failures do not stop the other
// lists; the joined error reports all of them.
func (s *FeedListService) SyncAll(ctx context.Context, sess api.Session) error {
	metas, err := s.client.ListFeedLists(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to list remote feed lists: %w", err)
	}
	if err := s.reconcileLists(ctx, metas); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	listErrs := make([]error, len(metas))
	for i, meta := range metas {
		g.Go(func() error {
			if err := s.SyncList(gctx, sess, meta.ID); err != nil {
				listErrs[i] = fmt.Errorf("failed to sync list %d: %w", meta.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(listErrs...)
}

// reconcileLists makes the local set of list rows match the remote: missing
// lists are created as empty shells, vanished lists are deleted, and names
// and tags are taken from the remote.
func (s *FeedListService) reconcileLists(ctx context.Context, metas []api.FeedListMeta) error {
	local, err := s.repo.All(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(local))
	for _, l := range local {
		known[l.ID] = true
	}
	remote := make(map[int64]bool, len(metas))

	for _, meta := range metas {
		remote[meta.ID] = true
		if !known[meta.ID] {
			err := s.repo.Create(ctx, models.FeedList{
				ID:      meta.ID,
				OwnerID: meta.OwnerID,
				Name:    meta.Name,
				Tags:    meta.Tags,
			})
			if err != nil {
				return fmt.Errorf("failed to create local list %d: %w", meta.ID, err)
			}
			continue
		}
		if err := s.repo.ReplaceTags(ctx, meta.ID, meta.Tags); err != nil {
			return fmt.Errorf("failed to update tags of list %d: %w", meta.ID, err)
		}
	}

	var gone []int64
	for _, l := range local {
		if !remote[l.ID] {
			gone = append(gone, l.ID)
		}
	}
	if len(gone) > 0 {
		if err := s.repo.BulkDelete(ctx, gone); err != nil {
			return fmt.Errorf("failed to delete vanished lists: %w", err)
		}
	}
	return nil
}

// SyncList converges one list's membership with the remote.
//
// Four deltas are computed against the pre-merge local snapshot: remote
// includes and excludes the local copy is missing are merged in, and local
// includes and excludes the remote is missing are patched out. Running
// SyncList twice against an unchanged remote sends nothing the second time.
func (s *FeedListService) SyncList(ctx context.Context, sess api.Session, listID int64) error {
	local, err := s.repo.Get(ctx, listID)
	if err != nil {
		return err
	}
	if local == nil {
		return fmt.Errorf("%w: %d", ErrUnknownList, listID)
	}

	detail, err := s.client.GetFeedList(ctx, sess, listID)
	if err != nil {
		return fmt.Errorf("failed to get remote list: %w", err)
	}

	remoteIn := make(map[uint64]bool, len(detail.In))
	for _, e := range detail.In {
		remoteIn[e.EUID] = true
	}
	remoteRm := make(map[uint64]bool, len(detail.Rm))
	for _, id := range detail.Rm {
		remoteRm[id] = true
	}

	var addIncludes []models.ListEntry
	for _, e := range detail.In {
		if !local.IncludesEUID(e.EUID) {
			addIncludes = append(addIncludes, models.ListEntry{FeedURLHash: e.FeedURLHash, EUID: e.EUID})
		}
	}
	var addExcludes []uint64
	for _, id := range detail.Rm {
		if !local.ExcludesEUID(id) {
			addExcludes = append(addExcludes, id)
		}
	}

	var patch api.FeedListPatch
	for _, e := range local.Includes {
		if !remoteIn[e.EUID] && !remoteRm[e.EUID] {
			patch.In = append(patch.In, api.ListEntry{FeedURLHash: e.FeedURLHash, EUID: e.EUID})
		}
	}
	for _, id := range local.Excludes {
		if !remoteRm[id] {
			patch.Rm = append(patch.Rm, id)
		}
	}

	if len(addIncludes) > 0 || len(addExcludes) > 0 {
		if err := s.repo.Merge(ctx, listID, addIncludes, addExcludes); err != nil {
			return fmt.Errorf("failed to merge remote membership: %w", err)
		}
	}
	if !patch.IsEmpty() {
		if err := s.client.PatchFeedList(ctx, sess, listID, patch); err != nil {
			return fmt.Errorf("failed to patch remote list: %w", err)
		}
	}
	return nil
}

// AddFeed adds the feed to the list under a freshly minted EUID. The local
// write is the source of truth; the remote patch is best effort, and synced
// reports whether it was accepted. A declined patch is retried implicitly
// by the next SyncList, which pushes any include the remote is missing.
func (s *FeedListService) AddFeed(ctx context.Context, sess api.Session, listID int64, feedURLHash string) (entry models.ListEntry, synced bool, err error) {
	id := euid.Generate()
	entry = models.ListEntry{FeedURLHash: feedURLHash, EUID: id}
	if err := s.repo.Merge(ctx, listID, []models.ListEntry{entry}, nil); err != nil {
		return models.ListEntry{}, false, fmt.Errorf("failed to add feed locally: %w", err)
	}

	patch := api.FeedListPatch{In: []api.ListEntry{{FeedURLHash: feedURLHash, EUID: id}}}
	if err := s.client.PatchFeedList(ctx, sess, listID, patch); err != nil {
		s.log.Warn(ctx, "failed to push added feed, deferring to next sync",
			"list_id", listID, "euid", id, "error", err)
		return entry, false, nil
	}
	return entry, true, nil
}

// RemoveFeed excludes the EUID from the list. As with AddFeed the local
// exclusion always lands; synced reports whether the remote accepted the
// removal immediately.
func (s *FeedListService) RemoveFeed(ctx context.Context, sess api.Session, listID int64, id uint64) (synced bool, err error) {
	if err := s.repo.Exclude(ctx, listID, id); err != nil {
		return false, fmt.Errorf("failed to exclude feed locally: %w", err)
	}
	patch := api.FeedListPatch{Rm: []uint64{id}}
	if err := s.client.PatchFeedList(ctx, sess, listID, patch); err != nil {
		s.log.Warn(ctx, "failed to push feed removal, deferring to next sync",
			"list_id", listID, "euid", id, "error", err)
		return false, nil
	}
	return true, nil
}

// NewList creates a list remotely and mirrors it locally. Creation is not
// optimistic: without a server-assigned id there is nothing to store.
func (s *FeedListService) NewList(ctx context.Context, sess api.Session, name string) (*models.FeedList, error) {
	meta, err := s.client.CreateFeedList(ctx, sess, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote list: %w", err)
	}
	list := models.FeedList{ID: meta.ID, OwnerID: meta.OwnerID, Name: meta.Name, Tags: meta.Tags}
	if err := s.repo.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to mirror new list locally: %w", err)
	}
	return &list, nil
}

// DefaultList returns the local list the remote tagged as the user's
// default, or nil when none is known yet.
func (s *FeedListService) DefaultList(ctx context.Context) (*models.FeedList, error) {
	lists, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range lists {
		if lists[i].HasTag(models.DefaultListTag) {
			return &lists[i], nil
		}
	}
	return nil, nil
}

// Get returns the local copy of one list, or nil when unknown.
func (s *FeedListService) Get(ctx context.Context, listID int64) (*models.FeedList, error) {
	return s.repo.Get(ctx, listID)
}

// Reset wipes all list tables.
func (s *FeedListService) Reset(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}
