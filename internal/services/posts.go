package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/locks"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/models"
	"github.com/lightstands/standsync/internal/store/feedlists"
	"github.com/lightstands/standsync/internal/store/postmeta"
	"github.com/lightstands/standsync/internal/store/settings"
)

// fetchPageLimit bounds one remote page of post metadata.
const fetchPageLimit = 64

// postMetaSyncPeriod throttles per-feed forward fetches.
const postMetaSyncPeriod = 30 * time.Minute

// syncTimePostMeta is the watermark family for per-feed post-meta syncs.
const syncTimePostMeta = "post-meta"

// PostService maintains the post-metadata cache: forward fetches extend it
// to the present, backward fetches page into history, and single-post reads
// are cache-first with a background refresh.
//
// All pagination runs under the fetch-post-meta keyed lock per feed, since
// both directions recompute their window from the cached newest/oldest rows.
type PostService struct {
	repo     postmeta.Repository
	lists    feedlists.Repository
	settings settings.Repository
	feeds    *FeedService
	client   api.Client
	locks    *locks.Keyed
	log      logging.Logger

	bg sync.WaitGroup
}

func NewPostService(
	repo postmeta.Repository,
	lists feedlists.Repository,
	sets settings.Repository,
	feeds *FeedService,
	client api.Client,
	keyed *locks.Keyed,
	log logging.Logger,
) *PostService {
	return &PostService{
		repo:     repo,
		lists:    lists,
		settings: sets,
		feeds:    feeds,
		client:   client,
		locks:    keyed,
		log:      log.With("service", "posts"),
	}
}

func fetchLockKey(feedURLHash string) string {
	return locks.FetchPostMeta + ":" + feedURLHash
}

// FetchNew pulls post metadata from the newest cached post forward until
// the cache is caught up with the remote, and returns the number of posts
// added. A page that adds nothing new means the overlap window is fully
// cached, which is the stop signal.
func (s *PostService) FetchNew(ctx context.Context, feed models.Feed) (int, error) {
	var added int
	err := s.locks.Do(fetchLockKey(feed.URLHash), func() error {
		newest, err := s.repo.Newest(ctx, feed.Ref)
		if err != nil {
			return err
		}
		var since int64
		if newest != nil {
			since = newest.PublishedAt
		}
		for {
			page, err := s.client.GetFeedPosts(ctx, feed.URLHash, api.PostQuery{
				PubSince: since,
				Limit:    fetchPageLimit,
			})
			if err != nil {
				return err
			}
			if len(page.Posts) == 0 {
				return nil
			}
			var pageAdded int
			var maxSeen int64
			for _, p := range page.Posts {
				existed, err := s.cache(ctx, p)
				if err != nil {
					return err
				}
				if !existed {
					pageAdded++
				}
				if p.PublishedAt > maxSeen {
					maxSeen = p.PublishedAt
				}
			}
			added += pageAdded
			if pageAdded == 0 || len(page.Posts) < fetchPageLimit {
				return nil
			}
			since = maxSeen
		}
	})
	if err != nil {
		return added, fmt.Errorf("failed to fetch new posts of feed %s: %w", feed.URLHash, err)
	}
	return added, nil
}

// FetchOld pulls one page of post metadata older than the oldest cached
// post and returns the number of posts added. Zero with a nil error means
// the remote has nothing older; callers drive deeper history by calling
// again while the count stays positive.
func (s *PostService) FetchOld(ctx context.Context, feed models.Feed) (int, error) {
	var added int
	err := s.locks.Do(fetchLockKey(feed.URLHash), func() error {
		oldest, err := s.repo.Oldest(ctx, feed.Ref)
		if err != nil {
			return err
		}
		q := api.PostQuery{Limit: fetchPageLimit}
		if oldest != nil {
			q.PubBefore = oldest.PublishedAt
		}
		page, err := s.client.GetFeedPosts(ctx, feed.URLHash, q)
		if err != nil {
			return err
		}
		for _, p := range page.Posts {
			existed, err := s.cache(ctx, p)
			if err != nil {
				return err
			}
			if !existed {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("failed to fetch old posts of feed %s: %w", feed.URLHash, err)
	}
	return added, nil
}

func (s *PostService) cache(ctx context.Context, p api.Post) (existed bool, err error) {
	return s.repo.Upsert(ctx, models.Post{
		Ref:         p.Ref,
		FeedRef:     p.FeedRef,
		IDHash:      p.IDHash,
		Title:       p.Title,
		Link:        p.Link,
		Summary:     p.Summary,
		PublishedAt: p.PublishedAt,
		UpdatedAt:   p.UpdatedAt,
		FetchedAt:   time.Now().UnixMilli(),
	})
}

// SyncPostMeta runs FetchNew for the feed unless it synced within the last
// thirty minutes. The watermark only advances on success, so a failed fetch
// is retried on the next call.
func (s *PostService) SyncPostMeta(ctx context.Context, feed models.Feed) error {
	feedKey := strconv.FormatInt(feed.Ref, 10)
	due, err := s.settings.MeetsSyncTime(ctx, postMetaSyncPeriod, syncTimePostMeta, feedKey)
	if err != nil {
		return err
	}
	if !due {
		s.log.Debug(ctx, "post meta recently synced, skipping", "feed_ref", feed.Ref)
		return nil
	}
	if _, err := s.FetchNew(ctx, feed); err != nil {
		return err
	}
	return s.settings.SetLastSyncTime(ctx, time.Now().UnixMilli(), syncTimePostMeta, feedKey)
}

// SyncAllPostMeta runs SyncPostMeta for every feed included in any list.
// Per-feed failures do not stop the sweep.
func (s *PostService) SyncAllPostMeta(ctx context.Context) error {
	hashes, err := s.lists.IncludedFeedHashes(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate included feeds: %w", err)
	}
	var errs []error
	for _, hash := range hashes {
		feed, err := s.feeds.GetFeedInfo(ctx, hash)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.SyncPostMeta(ctx, *feed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetPost returns one post by content hashes, cache-first: a hit is
// returned immediately with a detached background refresh, a miss fetches
// synchronously.
func (s *PostService) GetPost(ctx context.Context, feedURLHash, postIDHash string) (*models.Post, error) {
	feed, err := s.feeds.GetFeedInfo(ctx, feedURLHash)
	if err != nil {
		return nil, err
	}
	cached, err := s.repo.GetByHash(ctx, feed.Ref, postIDHash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.refreshAsync(ctx, feedURLHash, postIDHash)
		return cached, nil
	}

	remote, err := s.client.GetPost(ctx, feedURLHash, postIDHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	if _, err := s.cache(ctx, remote); err != nil {
		return nil, err
	}
	return s.repo.GetByRef(ctx, remote.Ref)
}

func (s *PostService) refreshAsync(ctx context.Context, feedURLHash, postIDHash string) {
	bgCtx := context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		remote, err := s.client.GetPost(bgCtx, feedURLHash, postIDHash)
		if err == nil {
			_, err = s.cache(bgCtx, remote)
		}
		if err != nil {
			s.log.Warn(bgCtx, "background post refresh failed",
				"feed", feedURLHash, "post", postIDHash, "error", err)
		}
	}()
}

// PostsOf returns the cached posts of a feed ordered by publish time.
func (s *PostService) PostsOf(ctx context.Context, feedRef int64, desc bool) ([]models.Post, error) {
	return s.repo.AllOf(ctx, feedRef, desc)
}

// Wait blocks until in-flight background refreshes finish.
func (s *PostService) Wait() { s.bg.Wait() }

// Reset wipes the post metadata cache.
func (s *PostService) Reset(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}
