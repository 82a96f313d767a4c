package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/models"
	"github.com/lightstands/standsync/internal/store/feedmeta"
)

// FeedService serves feed metadata cache-first: a cached feed is returned
// immediately and refreshed from the remote in the background, so a stale
// cache costs one read, not one round trip.
type FeedService struct {
	repo   feedmeta.Repository
	client api.Client
	log    logging.Logger

	bg sync.WaitGroup
}

func NewFeedService(repo feedmeta.Repository, client api.Client, log logging.Logger) *FeedService {
	return &FeedService{repo: repo, client: client, log: log.With("service", "feeds")}
}

// GetFeedInfo returns the feed's metadata by URL hash. On a cache hit the
// cached copy is returned and a background refresh is started; on a miss
// the remote is consulted synchronously. Either way last_used_at is bumped
// (day-throttled by the repository).
func (s *FeedService) GetFeedInfo(ctx context.Context, feedURLHash string) (*models.Feed, error) {
	cached, err := s.repo.GetByURLHash(ctx, feedURLHash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.refreshAsync(ctx, feedURLHash)
		if err := s.Touch(ctx, feedURLHash); err != nil {
			s.log.Warn(ctx, "failed to touch feed", "feed", feedURLHash, "error", err)
		}
		return cached, nil
	}

	feed, err := s.fetch(ctx, feedURLHash)
	if err != nil {
		return nil, err
	}
	if err := s.Touch(ctx, feedURLHash); err != nil {
		s.log.Warn(ctx, "failed to touch feed", "feed", feedURLHash, "error", err)
	}
	return feed, nil
}

// refreshAsync updates the cached copy without blocking the caller. The
// goroutine outlives the request context on purpose; only its cancellation
// is detached, not its values.
func (s *FeedService) refreshAsync(ctx context.Context, feedURLHash string) {
	bgCtx := context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.fetch(bgCtx, feedURLHash); err != nil {
			s.log.Warn(bgCtx, "background feed refresh failed", "feed", feedURLHash, "error", err)
		}
	}()
}

func (s *FeedService) fetch(ctx context.Context, feedURLHash string) (*models.Feed, error) {
	remote, err := s.client.GetFeedInfo(ctx, feedURLHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed info: %w", err)
	}
	feed := models.Feed{
		Ref:           remote.Ref,
		URLHash:       remote.URLHash,
		URL:           remote.URL,
		Title:         remote.Title,
		Link:          remote.Link,
		Description:   remote.Description,
		LastFetchedAt: remote.LastFetchedAt,
	}
	if err := s.repo.Upsert(ctx, feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Touch records that the feed was used; the repository throttles the write
// to once per day.
func (s *FeedService) Touch(ctx context.Context, feedURLHash string) error {
	return s.repo.Touch(ctx, feedURLHash, time.Now().UnixMilli())
}

// Wait blocks until in-flight background refreshes finish.
func (s *FeedService) Wait() { s.bg.Wait() }

// Reset wipes the feed metadata cache.
func (s *FeedService) Reset(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}
