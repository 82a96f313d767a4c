package postmeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lightstands/standsync/internal/dbx"
	"github.com/lightstands/standsync/internal/models"
)

// SQLiteRepository implements Repository on the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const postColumns = `ref, feed_ref, id_hash, title, link, summary, published_at, updated_at, fetched_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.Ref, &p.FeedRef, &p.IDHash, &p.Title, &p.Link, &p.Summary,
		&p.PublishedAt, &p.UpdatedAt, &p.FetchedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) one(ctx context.Context, query string, args ...any) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post meta: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByRef(ctx context.Context, ref int64) (*models.Post, error) {
	return r.one(ctx, `SELECT `+postColumns+` FROM post_metas WHERE ref = ?`, ref)
}

func (r *SQLiteRepository) GetByHash(ctx context.Context, feedRef int64, idHash string) (*models.Post, error) {
	return r.one(ctx,
		`SELECT `+postColumns+` FROM post_metas WHERE feed_ref = ? AND id_hash = ?`, feedRef, idHash)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Post) (bool, error) {
	var existed bool
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM post_metas WHERE ref = ?`, p.Ref).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			existed = false
		case err != nil:
			return err
		default:
			existed = true
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO post_metas (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (ref) DO UPDATE SET
				feed_ref = excluded.feed_ref,
				id_hash = excluded.id_hash,
				title = excluded.title,
				link = excluded.link,
				summary = excluded.summary,
				published_at = excluded.published_at,
				updated_at = excluded.updated_at,
				fetched_at = excluded.fetched_at
		`, p.Ref, p.FeedRef, p.IDHash, p.Title, p.Link, p.Summary,
			p.PublishedAt, p.UpdatedAt, p.FetchedAt)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert post meta %d: %w", p.Ref, err)
	}
	return existed, nil
}

func (r *SQLiteRepository) Newest(ctx context.Context, feedRef int64) (*models.Post, error) {
	return r.one(ctx, `
		SELECT `+postColumns+` FROM post_metas WHERE feed_ref = ?
		ORDER BY published_at DESC LIMIT 1`, feedRef)
}

func (r *SQLiteRepository) Oldest(ctx context.Context, feedRef int64) (*models.Post, error) {
	return r.one(ctx, `
		SELECT `+postColumns+` FROM post_metas WHERE feed_ref = ?
		ORDER BY published_at ASC LIMIT 1`, feedRef)
}

func (r *SQLiteRepository) collect(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select post metas: %w", err)
	}
	defer rows.Close()

	var result []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) AllOf(ctx context.Context, feedRef int64, desc bool) ([]models.Post, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	return r.collect(ctx, `
		SELECT `+postColumns+` FROM post_metas WHERE feed_ref = ?
		ORDER BY published_at `+order, feedRef)
}

func (r *SQLiteRepository) MostRecent(ctx context.Context) (*models.Post, error) {
	return r.one(ctx, `
		SELECT `+postColumns+` FROM post_metas
		ORDER BY published_at DESC LIMIT 1`)
}

func (r *SQLiteRepository) PublishedSince(ctx context.Context, ts int64) ([]models.Post, error) {
	return r.collect(ctx, `
		SELECT `+postColumns+` FROM post_metas WHERE published_at >= ?
		ORDER BY published_at DESC`, ts)
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM post_metas`)
	if err != nil {
		return fmt.Errorf("failed to clear post metas: %w", err)
	}
	return nil
}
