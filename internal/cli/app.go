// Package cli implements the standsync command-line interface: a thin
// command dispatcher over the sync services, meant for driving and
// inspecting the engine from a terminal.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/api/rest"
	"github.com/lightstands/standsync/internal/config"
	"github.com/lightstands/standsync/internal/locks"
	"github.com/lightstands/standsync/internal/logging"
	"github.com/lightstands/standsync/internal/services"
	"github.com/lightstands/standsync/internal/store"
)

// accessTokenKey is the settings slot holding the persisted access token.
const accessTokenKey = "access_token"

// App wires the store, the remote client, and the services together and
// dispatches subcommands.
type App struct {
	config *config.Config
	store  *store.Store
	client api.Client
	log    logging.Logger

	tags     *services.TagService
	lists    *services.FeedListService
	feeds    *services.FeedService
	posts    *services.PostService
	timeline *services.TimelineService
	coord    *services.Coordinator

	out io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewTextLogger(os.Stderr, cfg.Debug)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	client, err := rest.New(cfg.APIBaseURL)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to build remote client: %w", err)
	}

	tags := services.NewTagService(st.Tags, client, log)
	lists := services.NewFeedListService(st.FeedLists, client, log)
	feeds := services.NewFeedService(st.FeedMeta, client, log)
	posts := services.NewPostService(st.PostMeta, st.FeedLists, st.Settings, feeds, client, locks.NewKeyed(), log)

	return &App{
		config:   cfg,
		store:    st,
		client:   client,
		log:      log,
		tags:     tags,
		lists:    lists,
		feeds:    feeds,
		posts:    posts,
		timeline: services.NewTimelineService(st.PostMeta, st.Tags),
		coord:    services.NewCoordinator(tags, lists, posts, st, log),
		out:      os.Stdout,
	}, nil
}

// Close flushes background work and releases resources.
func (a *App) Close() error {
	a.posts.Wait()
	a.feeds.Wait()
	_ = a.client.Close()
	return a.store.Close()
}

// session loads the persisted access token, if any.
func (a *App) session(ctx context.Context) (api.Session, error) {
	token, found, err := a.store.Settings.Get(ctx, accessTokenKey)
	if err != nil {
		return api.Session{}, err
	}
	if !found {
		return api.Session{}, fmt.Errorf("not logged in, run `standsync login <username>` first")
	}
	return api.SessionFromToken(token)
}
