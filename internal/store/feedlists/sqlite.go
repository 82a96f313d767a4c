package feedlists

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lightstands/standsync/internal/dbx"
	"github.com/lightstands/standsync/internal/models"
)

// SQLiteRepository implements Repository on the local SQLite database.
//
// EUIDs are stored as SQLite INTEGERs. The scheme never produces values
// above 2^52, so the int64 column holds them without sign trouble.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) loadMembership(ctx context.Context, q dbx.DBTX, list *models.FeedList) error {
	rows, err := q.QueryContext(ctx,
		`SELECT feed_url_hash, euid FROM feed_list_includes WHERE list_id = ?`, list.ID)
	if err != nil {
		return fmt.Errorf("failed to select includes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e models.ListEntry
		var euid int64
		if err := rows.Scan(&e.FeedURLHash, &euid); err != nil {
			return err
		}
		e.EUID = uint64(euid)
		list.Includes = append(list.Includes, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	exRows, err := q.QueryContext(ctx,
		`SELECT euid FROM feed_list_excludes WHERE list_id = ?`, list.ID)
	if err != nil {
		return fmt.Errorf("failed to select excludes: %w", err)
	}
	defer exRows.Close()
	for exRows.Next() {
		var euid int64
		if err := exRows.Scan(&euid); err != nil {
			return err
		}
		list.Excludes = append(list.Excludes, uint64(euid))
	}
	return exRows.Err()
}

func (r *SQLiteRepository) scanList(ctx context.Context, q dbx.DBTX, row *sql.Row) (*models.FeedList, error) {
	var list models.FeedList
	var tagsJSON string
	if err := row.Scan(&list.ID, &list.OwnerID, &list.Name, &tagsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &list.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode list tags: %w", err)
	}
	if err := r.loadMembership(ctx, q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.FeedList, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT list_id FROM feed_lists ORDER BY list_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select feed lists: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.FeedList, 0, len(ids))
	for _, id := range ids {
		list, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if list != nil {
			result = append(result, *list)
		}
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, listID int64) (*models.FeedList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT list_id, owner_id, name, tags FROM feed_lists WHERE list_id = ?`, listID)
	list, err := r.scanList(ctx, r.db, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed list %d: %w", listID, err)
	}
	return list, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, list models.FeedList) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(list.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode list tags: %w", err)
	}
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feed_lists (list_id, owner_id, name, tags) VALUES (?, ?, ?, ?)`,
			list.ID, list.OwnerID, list.Name, string(tagsJSON)); err != nil {
			return err
		}
		return mergeMembership(ctx, tx, list.ID, list.Includes, list.Excludes)
	})
	if err != nil {
		return fmt.Errorf("failed to create feed list %d: %w", list.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) BulkDelete(ctx context.Context, listIDs []int64) error {
	if len(listIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(listIDs)), ",")
	args := make([]any, len(listIDs))
	for i, id := range listIDs {
		args[i] = id
	}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"feed_list_includes", "feed_list_excludes", "feed_lists"} {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE list_id IN (`+placeholders+`)`, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bulk-delete feed lists: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceTags(ctx context.Context, listID int64, tags []string) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(tags))
	if err != nil {
		return fmt.Errorf("failed to encode list tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE feed_lists SET tags = ? WHERE list_id = ?`, string(tagsJSON), listID)
	if err != nil {
		return fmt.Errorf("failed to replace tags of list %d: %w", listID, err)
	}
	return nil
}

// mergeMembership appends excludes first, then prunes and filters includes,
// so an EUID present in both halves ends up excluded.
func mergeMembership(ctx context.Context, tx dbx.DBTX, listID int64, includes []models.ListEntry, excludes []uint64) error {
	for _, euid := range excludes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO feed_list_excludes (list_id, euid) VALUES (?, ?)`,
			listID, int64(euid)); err != nil {
			return err
		}
	}
	if len(excludes) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM feed_list_includes WHERE list_id = ?
			AND euid IN (SELECT euid FROM feed_list_excludes WHERE list_id = ?)
		`, listID, listID); err != nil {
			return err
		}
	}
	for _, e := range includes {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO feed_list_includes (list_id, euid, feed_url_hash)
			SELECT ?, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM feed_list_excludes WHERE list_id = ? AND euid = ?)
		`, listID, int64(e.EUID), e.FeedURLHash, listID, int64(e.EUID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Merge(ctx context.Context, listID int64, includes []models.ListEntry, excludes []uint64) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM feed_lists WHERE list_id = ?`, listID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("feed list %d is not known locally", listID)
		}
		if err != nil {
			return err
		}
		return mergeMembership(ctx, tx, listID, includes, excludes)
	})
	if err != nil {
		return fmt.Errorf("failed to merge into list %d: %w", listID, err)
	}
	return nil
}

func (r *SQLiteRepository) Exclude(ctx context.Context, listID int64, euid uint64) error {
	return r.Merge(ctx, listID, nil, []uint64{euid})
}

func (r *SQLiteRepository) IncludedFeedHashes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT feed_url_hash FROM feed_list_includes`)
	if err != nil {
		return nil, fmt.Errorf("failed to select included feeds: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"feed_list_includes", "feed_list_excludes", "feed_lists"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear feed lists: %w", err)
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
