package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

// taskColumns is the canonical SELECT list for task rows.
const taskColumns = "id, chat_id, text, due_utc, created_utc, done, all_day"

type rowScanner interface {
	Scan(dest ...any) error
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t       domain.Task
		dueUnix int64
		crtUnix int64
		doneInt int
		alldInt int
	)
	if err := row.Scan(&t.ID, &t.ChatID, &t.Text, &dueUnix, &crtUnix, &doneInt, &alldInt); err != nil {
		return nil, err
	}
	t.DueAt = unixUTC(dueUnix)
	t.CreatedAt = unixUTC(crtUnix)
	t.Done = doneInt != 0
	t.AllDay = alldInt != 0
	return &t, nil
}

func scanSettings(row rowScanner) (*domain.ChatSettings, error) {
	var (
		s      domain.ChatSettings
		remInt int
	)
	if err := row.Scan(&s.ChatID, &s.TZ, &s.DigestHour, &s.DigestMinute,
		&s.LeadMinutes, &remInt, &s.Language); err != nil {
		return nil, err
	}
	s.RemindersEnabled = remInt != 0
	return &s, nil
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
