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

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

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
		"PRAGMA foreign_keys=ON;",
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

// --- tasks ---

// SaveTask inserts a task row and returns the generated id.
func (r *SQLiteRepo) SaveTask(ctx context.Context, t *domain.Task) (int64, error) {
	if t == nil {
		return 0, errors.New("nil task")
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (chat_id, text, due_utc, created_utc, done, all_day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ChatID, t.Text, t.DueAt.UTC().Unix(), created.Unix(),
		boolToInt(t.Done), boolToInt(t.AllDay),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTask returns a chat's task by id, or ErrNotFound.
func (r *SQLiteRepo) GetTask(ctx context.Context, chatID, taskID int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE chat_id = ? AND id = ?`,
		chatID, taskID,
	)
	t, err := scanTask(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return t, nil
}

// FetchForLocalDay returns the chat's undone tasks due within the local
// calendar day: all-day first, then timed ascending by due time.
func (r *SQLiteRepo) FetchForLocalDay(ctx context.Context, chatID int64, day time.Time, loc *time.Location) ([]domain.Task, error) {
	startLocal := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	endLocal := startLocal.AddDate(0, 0, 1) // DST-safe, not a flat +24h

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE chat_id = ? AND done = 0 AND due_utc >= ? AND due_utc < ?
		ORDER BY all_day DESC, due_utc ASC`,
		chatID, startLocal.UTC().Unix(), endLocal.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListUpcomingTimed returns undone, timed tasks due strictly after now.
// This is the reschedule-all source query.
func (r *SQLiteRepo) ListUpcomingTimed(ctx context.Context, chatID int64, now time.Time) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE chat_id = ? AND done = 0 AND all_day = 0 AND due_utc > ?
		ORDER BY due_utc ASC`,
		chatID, now.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkDone flags a chat's task as completed.
func (r *SQLiteRepo) MarkDone(ctx context.Context, chatID, taskID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET done = 1 WHERE chat_id = ? AND id = ?`,
		chatID, taskID,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTask removes a chat's task.
func (r *SQLiteRepo) DeleteTask(ctx context.Context, chatID, taskID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE chat_id = ? AND id = ?`,
		chatID, taskID,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- settings ---

// GetSettings returns a chat's settings, or ErrNotFound for unknown chats.
func (r *SQLiteRepo) GetSettings(ctx context.Context, chatID int64) (*domain.ChatSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, tz, digest_hour, digest_minute, lead_minutes, reminders_enabled, language
		FROM settings
		WHERE chat_id = ?`,
		chatID,
	)
	s, err := scanSettings(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

// UpsertSettings inserts or updates a chat's settings row.
func (r *SQLiteRepo) UpsertSettings(ctx context.Context, s *domain.ChatSettings) error {
	if s == nil {
		return errors.New("nil settings")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (chat_id, tz, digest_hour, digest_minute, lead_minutes, reminders_enabled, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			tz                = excluded.tz,
			digest_hour       = excluded.digest_hour,
			digest_minute     = excluded.digest_minute,
			lead_minutes      = excluded.lead_minutes,
			reminders_enabled = excluded.reminders_enabled,
			language          = excluded.language`,
		s.ChatID, s.TZ, s.DigestHour, s.DigestMinute,
		s.LeadMinutes, boolToInt(s.RemindersEnabled), s.Language,
	)
	return err
}

// ListChatsWithSettings returns every chat's settings for startup recovery.
func (r *SQLiteRepo) ListChatsWithSettings(ctx context.Context) ([]domain.ChatSettings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, tz, digest_hour, digest_minute, lead_minutes, reminders_enabled, language
		FROM settings
		ORDER BY chat_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ChatSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
