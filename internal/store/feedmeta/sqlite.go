package feedmeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lightstands/standsync/internal/dbx"
	"github.com/lightstands/standsync/internal/models"
)

// dayMS is the write-throttle window for Touch.
const dayMS int64 = 24 * 60 * 60 * 1000

// SQLiteRepository implements Repository on the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const feedColumns = `ref, url_hash, url, title, link, description, last_fetched_at, last_used_at`

func (r *SQLiteRepository) getBy(ctx context.Context, q dbx.DBTX, where string, arg any) (*models.Feed, error) {
	row := q.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feed_metas WHERE `+where, arg)
	var f models.Feed
	err := row.Scan(&f.Ref, &f.URLHash, &f.URL, &f.Title, &f.Link, &f.Description, &f.LastFetchedAt, &f.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed meta: %w", err)
	}
	return &f, nil
}

func (r *SQLiteRepository) GetByRef(ctx context.Context, ref int64) (*models.Feed, error) {
	return r.getBy(ctx, r.db, `ref = ?`, ref)
}

func (r *SQLiteRepository) GetByURLHash(ctx context.Context, urlHash string) (*models.Feed, error) {
	return r.getBy(ctx, r.db, `url_hash = ?`, urlHash)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, feed models.Feed) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		old, err := r.getBy(ctx, tx, `ref = ?`, feed.Ref)
		if err != nil {
			return err
		}
		if old == nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO feed_metas (`+feedColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, feed.Ref, feed.URLHash, feed.URL, feed.Title, feed.Link, feed.Description,
				feed.LastFetchedAt, feed.LastUsedAt)
			return err
		}
		// strictly newer only, see interface note
		if feed.LastFetchedAt <= old.LastFetchedAt {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE feed_metas SET url_hash = ?, url = ?, title = ?, link = ?,
				description = ?, last_fetched_at = ?, last_used_at = ?
			WHERE ref = ?
		`, feed.URLHash, feed.URL, feed.Title, feed.Link, feed.Description,
			feed.LastFetchedAt, feed.LastUsedAt, feed.Ref)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert feed meta %d: %w", feed.Ref, err)
	}
	return nil
}

func (r *SQLiteRepository) Touch(ctx context.Context, urlHash string, nowMS int64) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		old, err := r.getBy(ctx, tx, `url_hash = ?`, urlHash)
		if err != nil || old == nil {
			return err
		}
		if old.LastUsedAt+dayMS > nowMS {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE feed_metas SET last_used_at = ? WHERE ref = ?`, nowMS, old.Ref)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to touch feed meta %s: %w", urlHash, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM feed_metas`)
	if err != nil {
		return fmt.Errorf("failed to clear feed metas: %w", err)
	}
	return nil
}
