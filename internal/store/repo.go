package store

import (
	"context"
	"errors"
	"time"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

// ErrNotFound is returned when a task or settings row does not exist.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for tasks and per-chat settings.
type Repo interface {
	// SaveTask inserts a task and returns its id.
	SaveTask(ctx context.Context, t *domain.Task) (int64, error)
	// GetTask returns a chat's task by id, or ErrNotFound.
	GetTask(ctx context.Context, chatID, taskID int64) (*domain.Task, error)
	// FetchForLocalDay returns undone tasks due within the chat-local
	// calendar day of `day` ([local midnight, local midnight+1d) in loc,
	// translated to the UTC range used in storage). All-day tasks come
	// first, then timed tasks ascending by due time.
	FetchForLocalDay(ctx context.Context, chatID int64, day time.Time, loc *time.Location) ([]domain.Task, error)
	// ListUpcomingTimed returns undone timed tasks with due time after now.
	ListUpcomingTimed(ctx context.Context, chatID int64, now time.Time) ([]domain.Task, error)
	MarkDone(ctx context.Context, chatID, taskID int64) error
	DeleteTask(ctx context.Context, chatID, taskID int64) error

	GetSettings(ctx context.Context, chatID int64) (*domain.ChatSettings, error)
	UpsertSettings(ctx context.Context, s *domain.ChatSettings) error
	// ListChatsWithSettings returns settings for every known chat; used on
	// startup to re-register digest and reminder jobs.
	ListChatsWithSettings(ctx context.Context) ([]domain.ChatSettings, error)

	Close() error
}
