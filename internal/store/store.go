// Package store opens the local SQLite database and bundles the
// per-table repositories behind one handle.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/lightstands/standsync/internal/store/feedlists"
	"github.com/lightstands/standsync/internal/store/feedmeta"
	"github.com/lightstands/standsync/internal/store/migrations"
	"github.com/lightstands/standsync/internal/store/postmeta"
	"github.com/lightstands/standsync/internal/store/settings"
	"github.com/lightstands/standsync/internal/store/tags"

	_ "modernc.org/sqlite"
)

// Store is the opened local database with its repositories.
type Store struct {
	DB        *sql.DB
	Tags      tags.Repository
	FeedLists feedlists.Repository
	FeedMeta  feedmeta.Repository
	PostMeta  postmeta.Repository
	Settings  settings.Repository
}

// Open opens (creating if needed) the database at dsn and runs pending
// migrations. Pass ":memory:" for an in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		DB:        db,
		Tags:      tags.NewSQLiteRepository(db),
		FeedLists: feedlists.NewSQLiteRepository(db),
		FeedMeta:  feedmeta.NewSQLiteRepository(db),
		PostMeta:  postmeta.NewSQLiteRepository(db),
		Settings:  settings.NewSQLiteRepository(db),
	}, nil
}

// Reset wipes all synchronized state and caches, keeping device-local
// identity so the installation stays recognizable after a fresh sync.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.Tags.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.FeedLists.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.FeedMeta.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.PostMeta.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.Settings.ResetSyncTimes(ctx); err != nil {
		return err
	}
	return s.Settings.SetLastFullSync(ctx, 0)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
