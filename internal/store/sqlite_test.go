package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLite_TaskRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	due := time.Date(2025, time.August, 8, 16, 0, 0, 0, rome).UTC()
	id, err := repo.SaveTask(ctx, &domain.Task{
		ChatID: 42,
		Text:   "Call mom",
		DueAt:  due,
	})
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := repo.GetTask(ctx, 42, id)
	require.NoError(t, err)
	assert.Equal(t, "Call mom", got.Text)
	assert.False(t, got.AllDay)
	assert.False(t, got.Done)
	// Saving U and reading it back yields exactly U.
	assert.True(t, got.DueAt.Equal(due), "want %v, got %v", due, got.DueAt)

	// Same instant through the local-day query.
	day := due.In(rome)
	tasks, err := repo.FetchForLocalDay(ctx, 42, day, rome)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].DueAt.Equal(due))
}

func TestSQLite_GetTaskScopedToChat(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveTask(ctx, &domain.Task{ChatID: 1, Text: "mine", DueAt: time.Now().UTC()})
	require.NoError(t, err)

	_, err = repo.GetTask(ctx, 2, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FetchForLocalDay_AllDayFirstThenAscending(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	day := time.Date(2025, time.September, 15, 12, 0, 0, 0, msk)
	save := func(text string, hh, mm int, allDay bool) {
		t.Helper()
		_, err := repo.SaveTask(ctx, &domain.Task{
			ChatID: 7,
			Text:   text,
			DueAt:  time.Date(2025, time.September, 15, hh, mm, 0, 0, msk).UTC(),
			AllDay: allDay,
		})
		require.NoError(t, err)
	}
	save("evening", 19, 0, false)
	save("report", 23, 59, true)
	save("morning", 9, 30, false)
	// Out of range and completed rows must not appear.
	_, err = repo.SaveTask(ctx, &domain.Task{
		ChatID: 7, Text: "next day",
		DueAt: time.Date(2025, time.September, 16, 0, 0, 0, 0, msk).UTC(),
	})
	require.NoError(t, err)
	doneID, err := repo.SaveTask(ctx, &domain.Task{
		ChatID: 7, Text: "done already",
		DueAt: time.Date(2025, time.September, 15, 10, 0, 0, 0, msk).UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone(ctx, 7, doneID))

	tasks, err := repo.FetchForLocalDay(ctx, 7, day, msk)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "report", tasks[0].Text)
	assert.Equal(t, "morning", tasks[1].Text)
	assert.Equal(t, "evening", tasks[2].Text)
}

func TestSQLite_ListUpcomingTimed(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(text string, due time.Time, done, allDay bool) int64 {
		t.Helper()
		id, err := repo.SaveTask(ctx, &domain.Task{ChatID: 9, Text: text, DueAt: due, AllDay: allDay})
		require.NoError(t, err)
		if done {
			require.NoError(t, repo.MarkDone(ctx, 9, id))
		}
		return id
	}
	save("future timed", now.Add(time.Hour), false, false)
	save("past timed", now.Add(-time.Hour), false, false)
	save("future all-day", now.Add(time.Hour), false, true)
	save("future done", now.Add(time.Hour), true, false)

	tasks, err := repo.ListUpcomingTimed(ctx, 9, now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "future timed", tasks[0].Text)
}

func TestSQLite_DeleteAndDoneReportMissingRows(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.MarkDone(ctx, 1, 999), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTask(ctx, 1, 999), ErrNotFound)

	id, err := repo.SaveTask(ctx, &domain.Task{ChatID: 1, Text: "x", DueAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteTask(ctx, 1, id))
	_, err = repo.GetTask(ctx, 1, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SettingsUpsertAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetSettings(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	set := &domain.ChatSettings{
		ChatID:           5,
		TZ:               "Europe/Amsterdam",
		DigestHour:       9,
		DigestMinute:     0,
		LeadMinutes:      30,
		RemindersEnabled: true,
		Language:         domain.LangEN,
	}
	require.NoError(t, repo.UpsertSettings(ctx, set))

	got, err := repo.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, set, got)

	set.DigestHour, set.Language = 21, domain.LangRU
	require.NoError(t, repo.UpsertSettings(ctx, set))
	got, err = repo.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 21, got.DigestHour)
	assert.Equal(t, domain.LangRU, got.Language)

	all, err := repo.ListChatsWithSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(5), all[0].ChatID)
}
