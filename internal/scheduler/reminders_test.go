package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

func testSettings(chatID int64) *domain.ChatSettings {
	return &domain.ChatSettings{
		ChatID:           chatID,
		TZ:               "UTC",
		DigestHour:       9,
		DigestMinute:     0,
		LeadMinutes:      30,
		RemindersEnabled: true,
		Language:         domain.LangEN,
	}
}

// addTask saves a timed task due lead+delta from now, so its reminder fires
// after delta.
func addTask(t *testing.T, repo *fakeRepo, set *domain.ChatSettings, delta time.Duration) *domain.Task {
	t.Helper()
	task := &domain.Task{
		ChatID: set.ChatID,
		Text:   "ping",
		DueAt:  time.Now().UTC().Add(time.Duration(set.LeadMinutes)*time.Minute + delta),
	}
	id, err := repo.SaveTask(context.Background(), task)
	require.NoError(t, err)
	task.ID = id
	return task
}

func TestReminders_ScheduleIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	r := NewReminders(repo, zap.NewNop(), sender)
	set := testSettings(1)
	require.NoError(t, repo.UpsertSettings(context.Background(), set))

	task := addTask(t, repo, set, 30*time.Millisecond)

	// Double registration must collapse into a single live job and a
	// single fire.
	r.Schedule(set, task)
	r.Schedule(set, task)
	assert.Equal(t, 1, r.jobCount(set.ChatID))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, 0, r.jobCount(set.ChatID))
}

func TestReminders_NoOpWhenFireTimePassed(t *testing.T) {
	repo := newFakeRepo()
	r := NewReminders(repo, zap.NewNop(), &fakeSender{})
	set := testSettings(1)

	// Due in 20 minutes with a 30 minute lead: fire instant already passed.
	task := &domain.Task{ID: 1, ChatID: 1, DueAt: time.Now().UTC().Add(20 * time.Minute)}
	r.Schedule(set, task)
	assert.Equal(t, 0, r.jobCount(1))
}

func TestReminders_NoOpWhenDisabledOrAllDayOrZeroLead(t *testing.T) {
	repo := newFakeRepo()
	r := NewReminders(repo, zap.NewNop(), &fakeSender{})

	task := &domain.Task{ID: 1, ChatID: 1, DueAt: time.Now().UTC().Add(2 * time.Hour)}

	off := testSettings(1)
	off.RemindersEnabled = false
	r.Schedule(off, task)

	zero := testSettings(1)
	zero.LeadMinutes = 0
	r.Schedule(zero, task)

	allDay := *task
	allDay.AllDay = true
	r.Schedule(testSettings(1), &allDay)

	assert.Equal(t, 0, r.jobCount(1))
}

func TestReminders_CancelPreventsFire(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	r := NewReminders(repo, zap.NewNop(), sender)
	set := testSettings(1)
	require.NoError(t, repo.UpsertSettings(context.Background(), set))

	task := addTask(t, repo, set, 60*time.Millisecond)
	r.Schedule(set, task)
	r.Cancel(task.ChatID, task.ID)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, sender.count())
}

func TestReminders_FireSkipsDoneAndDeleted(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	r := NewReminders(repo, zap.NewNop(), sender)
	set := testSettings(1)
	require.NoError(t, repo.UpsertSettings(context.Background(), set))

	done := addTask(t, repo, set, 30*time.Millisecond)
	gone := addTask(t, repo, set, 30*time.Millisecond)
	r.Schedule(set, done)
	r.Schedule(set, gone)

	require.NoError(t, repo.MarkDone(context.Background(), set.ChatID, done.ID))
	require.NoError(t, repo.DeleteTask(context.Background(), set.ChatID, gone.ID))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, sender.count())
}

func TestReminders_RescheduleAllRederivesWithoutDuplicates(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	r := NewReminders(repo, zap.NewNop(), sender)
	ctx := context.Background()

	set := testSettings(7)
	require.NoError(t, repo.UpsertSettings(ctx, set))

	// Two live timed tasks, one done, one all-day: only the first two get jobs.
	addTask(t, repo, set, time.Hour)
	addTask(t, repo, set, 2*time.Hour)
	doneTask := addTask(t, repo, set, 3*time.Hour)
	require.NoError(t, repo.MarkDone(ctx, set.ChatID, doneTask.ID))
	allDay := &domain.Task{ChatID: set.ChatID, DueAt: time.Now().UTC().Add(5 * time.Hour), AllDay: true}
	_, err := repo.SaveTask(ctx, allDay)
	require.NoError(t, err)

	require.NoError(t, r.RescheduleAll(ctx, set.ChatID))
	assert.Equal(t, 2, r.jobCount(set.ChatID))

	// Running it again (e.g. after a timezone change) must not duplicate.
	require.NoError(t, r.RescheduleAll(ctx, set.ChatID))
	assert.Equal(t, 2, r.jobCount(set.ChatID))
}

func TestReminders_RescheduleAllHonorsDisabled(t *testing.T) {
	repo := newFakeRepo()
	r := NewReminders(repo, zap.NewNop(), &fakeSender{})
	ctx := context.Background()

	set := testSettings(7)
	require.NoError(t, repo.UpsertSettings(ctx, set))
	task := addTask(t, repo, set, time.Hour)
	r.Schedule(set, task)
	require.Equal(t, 1, r.jobCount(set.ChatID))

	set.RemindersEnabled = false
	require.NoError(t, repo.UpsertSettings(ctx, set))
	require.NoError(t, r.RescheduleAll(ctx, set.ChatID))
	assert.Equal(t, 0, r.jobCount(set.ChatID))
}

func TestReminders_ChatsAreIsolated(t *testing.T) {
	repo := newFakeRepo()
	r := NewReminders(repo, zap.NewNop(), &fakeSender{})
	ctx := context.Background()

	a, b := testSettings(1), testSettings(2)
	require.NoError(t, repo.UpsertSettings(ctx, a))
	require.NoError(t, repo.UpsertSettings(ctx, b))
	r.Schedule(a, addTask(t, repo, a, time.Hour))
	r.Schedule(b, addTask(t, repo, b, time.Hour))

	r.CancelChat(a.ChatID)
	assert.Equal(t, 0, r.jobCount(a.ChatID))
	assert.Equal(t, 1, r.jobCount(b.ChatID))
}
