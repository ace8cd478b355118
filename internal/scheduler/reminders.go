package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
	"github.com/ykvlv/task-reminder-bot/internal/store"
)

// Sender is the minimal interface the schedulers need to deliver a text
// message. telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

type reminderKey struct {
	chatID int64
	taskID int64
}

// Reminders owns one-shot lead-time reminder jobs, at most one live job per
// (chat, task) key. All mutation goes through cancel-then-register, which
// makes Schedule idempotent: re-invoking it never produces duplicate fires,
// and a cancel that races an already-dispatched fire is a no-op.
type Reminders struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender
	now    func() time.Time

	mu     sync.Mutex
	timers map[reminderKey]*time.Timer
}

// NewReminders creates a reminder scheduler.
func NewReminders(repo store.Repo, log *zap.Logger, sender Sender) *Reminders {
	return &Reminders{
		repo:   repo,
		log:    log,
		sender: sender,
		now:    time.Now,
		timers: make(map[reminderKey]*time.Timer),
	}
}

// Schedule registers the reminder for a task, replacing any existing job
// under the same (chat, task) key. It is a no-op when the chat has
// reminders disabled, lead time is not positive, the task is all-day or
// done, or the fire instant has already passed.
func (r *Reminders) Schedule(set *domain.ChatSettings, t *domain.Task) {
	k := reminderKey{chatID: t.ChatID, taskID: t.ID}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(k)

	if !set.RemindersEnabled || set.LeadMinutes <= 0 || t.AllDay || t.Done {
		return
	}
	fireAt := t.DueAt.Add(-time.Duration(set.LeadMinutes) * time.Minute)
	delay := fireAt.Sub(r.now())
	if delay <= 0 {
		return
	}

	r.timers[k] = time.AfterFunc(delay, func() { r.fire(k) })
}

// Cancel removes the reminder job for one task, if any.
func (r *Reminders) Cancel(chatID, taskID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(reminderKey{chatID: chatID, taskID: taskID})
}

// CancelChat removes every reminder job owned by a chat.
func (r *Reminders) CancelChat(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.timers {
		if k.chatID == chatID {
			r.cancelLocked(k)
		}
	}
}

// RescheduleAll re-derives the chat's reminder jobs from storage. Call it
// whenever the chat's timezone, lead time or enabled flag changes: every
// undone, timed, still-future task gets a fresh job and nothing else stays
// behind.
func (r *Reminders) RescheduleAll(ctx context.Context, chatID int64) error {
	set, err := r.repo.GetSettings(ctx, chatID)
	if err != nil {
		return err
	}

	r.CancelChat(chatID)
	if !set.RemindersEnabled || set.LeadMinutes <= 0 {
		return nil
	}

	tasks, err := r.repo.ListUpcomingTimed(ctx, chatID, r.now())
	if err != nil {
		return err
	}
	for i := range tasks {
		r.Schedule(set, &tasks[i])
	}
	return nil
}

// Stop cancels all live jobs; used on shutdown.
func (r *Reminders) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.timers {
		r.cancelLocked(k)
	}
}

func (r *Reminders) cancelLocked(k reminderKey) {
	if t, ok := r.timers[k]; ok {
		t.Stop()
		delete(r.timers, k)
	}
}

// jobCount reports live jobs, optionally for a single chat (chatID 0 = all).
func (r *Reminders) jobCount(chatID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.timers {
		if chatID == 0 || k.chatID == chatID {
			n++
		}
	}
	return n
}

// fire dispatches one reminder. The task is re-read first: deleted or
// already-done tasks are dropped silently. Failures are logged and isolated,
// a missed reminder is recovered by the next RescheduleAll pass.
func (r *Reminders) fire(k reminderKey) {
	r.mu.Lock()
	delete(r.timers, k)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t, err := r.repo.GetTask(ctx, k.chatID, k.taskID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Error("reminder: task re-read failed", zap.Error(err),
				zap.Int64("chatID", k.chatID), zap.Int64("taskID", k.taskID))
		}
		return
	}
	if t.Done {
		return
	}

	set, err := r.repo.GetSettings(ctx, k.chatID)
	if err != nil {
		r.log.Error("reminder: settings read failed", zap.Error(err), zap.Int64("chatID", k.chatID))
		return
	}

	text := domain.ReminderText(set.Language, t, set.Location())
	if err := r.sender.SendMessage(k.chatID, text); err != nil {
		r.log.Error("reminder: send failed", zap.Error(err),
			zap.Int64("chatID", k.chatID), zap.Int64("taskID", k.taskID))
	}
}
