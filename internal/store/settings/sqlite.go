package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	keyDeviceID         = "device_id"
	keyDefaultFilterTag = "default_filter_tag"
	keyLastFullSync     = "last_time_sync"

	// DefaultFilterTag hides read posts unless the user says otherwise.
	defaultFilterTag = "!_read"
)

// SQLiteRepository implements Repository on the local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeviceID(ctx context.Context) (string, error) {
	id, found, err := r.Get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	id = uuid.NewString()
	if err := r.Set(ctx, keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRepository) DefaultFilterTag(ctx context.Context) (string, error) {
	tag, found, err := r.Get(ctx, keyDefaultFilterTag)
	if err != nil {
		return "", err
	}
	if !found {
		return defaultFilterTag, nil
	}
	return tag, nil
}

func (r *SQLiteRepository) SetDefaultFilterTag(ctx context.Context, tag string) error {
	return r.Set(ctx, keyDefaultFilterTag, tag)
}

func (r *SQLiteRepository) LastFullSync(ctx context.Context) (int64, error) {
	raw, found, err := r.Get(ctx, keyLastFullSync)
	if err != nil || !found {
		return 0, err
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse last full sync time: %w", err)
	}
	return at, nil
}

func (r *SQLiteRepository) SetLastFullSync(ctx context.Context, atMS int64) error {
	return r.Set(ctx, keyLastFullSync, strconv.FormatInt(atMS, 10))
}

// syncTag joins tag parts into the sync_times primary key.
func syncTag(tag []string) string {
	return strings.Join(tag, ":")
}

func (r *SQLiteRepository) LastSyncTime(ctx context.Context, tag ...string) (int64, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT at_ms FROM sync_times WHERE tag = ?`, syncTag(tag))
	var at int64
	err := row.Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get sync time %s: %w", syncTag(tag), err)
	}
	return at, nil
}

func (r *SQLiteRepository) SetLastSyncTime(ctx context.Context, atMS int64, tag ...string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_times (tag, at_ms) VALUES (?, ?)
		ON CONFLICT (tag) DO UPDATE SET at_ms = excluded.at_ms
	`, syncTag(tag), atMS)
	if err != nil {
		return fmt.Errorf("failed to set sync time %s: %w", syncTag(tag), err)
	}
	return nil
}

func (r *SQLiteRepository) MeetsSyncTime(ctx context.Context, period time.Duration, tag ...string) (bool, error) {
	last, err := r.LastSyncTime(ctx, tag...)
	if err != nil {
		return false, err
	}
	return last+period.Milliseconds() <= time.Now().UnixMilli(), nil
}

func (r *SQLiteRepository) ResetSyncTimes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_times`)
	if err != nil {
		return fmt.Errorf("failed to clear sync times: %w", err)
	}
	return nil
}
