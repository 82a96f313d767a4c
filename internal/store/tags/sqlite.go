package tags

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

func scanTag(row interface{ Scan(...any) error }) (*models.Tag, error) {
	var t models.Tag
	var isSync int
	err := row.Scan(&t.PostRef, &t.Tag, &t.CreatedAt, &t.UpdatedAt, &t.FeedURLHash, &t.PostIDHash, &isSync)
	if err != nil {
		return nil, err
	}
	t.IsSync = isSync != 0
	return &t, nil
}

const tagColumns = `post_ref, tag, created_at, updated_at, feed_url_hash, post_id_hash, is_sync`

func (r *SQLiteRepository) Get(ctx context.Context, postRef int64, tag string) (*models.Tag, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM post_tags WHERE post_ref = ? AND tag = ?`, postRef, tag)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag (%d, %s): %w", postRef, tag, err)
	}
	return t, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, t models.Tag) error {
	isSync := 0
	if t.IsSync {
		isSync = 1
	}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO post_tags (post_ref, tag, created_at, updated_at, feed_url_hash, post_id_hash, is_sync)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (post_ref, tag) DO UPDATE SET
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				feed_url_hash = excluded.feed_url_hash,
				post_id_hash = excluded.post_id_hash,
				is_sync = excluded.is_sync
		`, t.PostRef, t.Tag, t.CreatedAt, t.UpdatedAt, t.FeedURLHash, t.PostIDHash, isSync)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put tag (%d, %s): %w", t.PostRef, t.Tag, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, postRef int64, tag string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM post_tags WHERE post_ref = ? AND tag = ?`, postRef, tag)
	if err != nil {
		return fmt.Errorf("failed to delete tag (%d, %s): %w", postRef, tag, err)
	}
	return nil
}

func (r *SQLiteRepository) Dirty(ctx context.Context, tag string) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM post_tags WHERE tag = ? AND is_sync = 0`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty tags: %w", err)
	}
	defer rows.Close()

	var result []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) LatestSyncedUpdate(ctx context.Context, tag string) (int64, error) {
	var watermark sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM post_tags WHERE tag = ? AND is_sync = 1`, tag).Scan(&watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to get tag watermark: %w", err)
	}
	return watermark.Int64, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, postRef int64, tag string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE post_tags SET is_sync = 1 WHERE post_ref = ? AND tag = ?`, postRef, tag)
	if err != nil {
		return fmt.Errorf("failed to mark tag synced (%d, %s): %w", postRef, tag, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM post_tags`)
	if err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	return nil
}
