package services

import (
	"context"
	"time"

	"github.com/lightstands/standsync/internal/models"
	"github.com/lightstands/standsync/internal/store/postmeta"
	"github.com/lightstands/standsync/internal/store/tags"
)

// timelineWindow is how far back from the newest cached post the timeline
// reaches.
const timelineWindow = 14 * 24 * time.Hour

// TimelineEntry is one post with its local read state.
type TimelineEntry struct {
	Post models.Post
	Read bool
}

// TimelineDay groups the entries published on one calendar day (UTC),
// newest first within the day.
type TimelineDay struct {
	Date    string // YYYY-MM-DD
	Entries []TimelineEntry
}

// TimelineService assembles the reading timeline from the local cache only.
// It never touches the network; fetch routines decide what is cached.
type TimelineService struct {
	posts postmeta.Repository
	tags  tags.Repository
}

func NewTimelineService(posts postmeta.Repository, tagRepo tags.Repository) *TimelineService {
	return &TimelineService{posts: posts, tags: tagRepo}
}

// Make builds the timeline: all cached posts published within fourteen days
// of the newest cached post, grouped by day, newest day first. An empty
// cache yields an empty timeline.
func (s *TimelineService) Make(ctx context.Context) ([]TimelineDay, error) {
	top, err := s.posts.MostRecent(ctx)
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, nil
	}

	since := top.PublishedAt - int64(timelineWindow.Seconds())
	posts, err := s.posts.PublishedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	var days []TimelineDay
	for _, p := range posts {
		read, err := s.isRead(ctx, p.Ref)
		if err != nil {
			return nil, err
		}
		date := time.Unix(p.PublishedAt, 0).UTC().Format("2006-01-02")
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, TimelineDay{Date: date})
		}
		last := &days[len(days)-1]
		last.Entries = append(last.Entries, TimelineEntry{Post: p, Read: read})
	}
	return days, nil
}

func (s *TimelineService) isRead(ctx context.Context, postRef int64) (bool, error) {
	row, err := s.tags.Get(ctx, postRef, models.ReadTag)
	if err != nil {
		return false, err
	}
	return row != nil && !row.Tombstone(), nil
}
