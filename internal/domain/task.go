package domain

import (
	"fmt"
	"time"
)

// Task is a single to-do item owned by a chat.
// DueAt and CreatedAt are always stored in UTC. All-day tasks are pinned to
// 23:59 local time of their due date so day-range queries include them.
type Task struct {
	ID        int64
	ChatID    int64
	Text      string
	DueAt     time.Time // UTC
	CreatedAt time.Time // UTC
	Done      bool
	AllDay    bool
}

// ChatSettings holds per-chat configuration. A row is created with defaults
// on first contact and only mutated by the settings flows.
type ChatSettings struct {
	ChatID           int64
	TZ               string // IANA name, e.g. "Europe/Amsterdam"
	DigestHour       int    // 0..23, chat-local
	DigestMinute     int    // 0..59
	LeadMinutes      int    // reminder fires LeadMinutes before DueAt
	RemindersEnabled bool
	Language         string // "en" | "ru"
}

// Location resolves the chat's IANA timezone, falling back to UTC if the
// stored name is somehow invalid.
func (s *ChatSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// ParseClock parses "HH:MM" into hour and minute with strict range checks.
func ParseClock(s string) (hour, minute int, err error) {
	if _, e := fmt.Sscanf(s, "%d:%d", &hour, &minute); e != nil {
		return 0, 0, fmt.Errorf("expected HH:MM: %w", e)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidDateTime, hour, minute)
	}
	return hour, minute, nil
}

// FormatDueLocal renders a task's due time in the chat's timezone:
// "15:04 02.01" for timed tasks, "02.01" for all-day ones.
func FormatDueLocal(t *Task, loc *time.Location) string {
	local := t.DueAt.In(loc)
	if t.AllDay {
		return local.Format("02.01")
	}
	return local.Format("15:04 02.01")
}
