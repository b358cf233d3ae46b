package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

var _ Repo = (*SQLiteRepo)(nil)

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// ListUserIDs returns every chat id with a stored preference row.
func (r *SQLiteRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id FROM user_preferences ORDER BY chat_id`)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("list users", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}
	return ids, nil
}

// Get returns the stored preference. A user without a row yields a
// Preference with only UserID set.
func (r *SQLiteRepo) Get(ctx context.Context, userID string) (domain.Preference, error) {
	var (
		timeNS    sql.NullString
		tzNS      sql.NullString
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT notification_time, timezone, updated_at
		FROM user_preferences
		WHERE chat_id = ?`,
		userID,
	).Scan(&timeNS, &tzNS, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Preference{UserID: userID}, nil
	}
	if err != nil {
		return domain.Preference{}, unavailable("get preference", err)
	}

	return domain.Preference{
		UserID:           userID,
		NotificationTime: fromNullString(timeNS),
		Timezone:         fromNullString(tzNS),
		UpdatedAt:        time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// NotificationTime returns the stored HH:MM or "" when unset.
func (r *SQLiteRepo) NotificationTime(ctx context.Context, userID string) (string, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.NotificationTime, nil
}

// Timezone returns the stored IANA zone or "" when unset.
func (r *SQLiteRepo) Timezone(ctx context.Context, userID string) (string, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Timezone, nil
}

// Set inserts or partially updates a user's preference. Fields left nil in
// upd keep their stored value.
func (r *SQLiteRepo) Set(ctx context.Context, userID string, upd domain.PreferenceUpdate) error {
	if userID == "" {
		return errors.New("empty user id")
	}
	now := time.Now().UTC().Unix()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (
			chat_id, notification_time, timezone, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			notification_time = COALESCE(excluded.notification_time, user_preferences.notification_time),
			timezone          = COALESCE(excluded.timezone, user_preferences.timezone),
			updated_at        = excluded.updated_at`,
		userID, toNullString(upd.NotificationTime), toNullString(upd.Timezone), now, now,
	)
	if err != nil {
		return unavailable("set preference", err)
	}
	return nil
}
