package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
	"github.com/ykvlv/task-reminder-bot/internal/store"
)

// fakeRepo is an in-memory store.Repo for scheduler tests.
type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	tasks    map[int64]*domain.Task
	settings map[int64]*domain.ChatSettings
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:    make(map[int64]*domain.Task),
		settings: make(map[int64]*domain.ChatSettings),
	}
}

func (f *fakeRepo) SaveTask(_ context.Context, t *domain.Task) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *t
	cp.ID = f.nextID
	f.tasks[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) GetTask(_ context.Context, chatID, taskID int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.ChatID != chatID {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) FetchForLocalDay(_ context.Context, chatID int64, day time.Time, loc *time.Location) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	var allDay, timed []domain.Task
	for _, t := range f.tasks {
		if t.ChatID != chatID || t.Done || t.DueAt.Before(start.UTC()) || !t.DueAt.Before(end.UTC()) {
			continue
		}
		if t.AllDay {
			allDay = append(allDay, *t)
		} else {
			timed = append(timed, *t)
		}
	}
	for i := 1; i < len(timed); i++ {
		for j := i; j > 0 && timed[j].DueAt.Before(timed[j-1].DueAt); j-- {
			timed[j], timed[j-1] = timed[j-1], timed[j]
		}
	}
	return append(allDay, timed...), nil
}

func (f *fakeRepo) ListUpcomingTimed(_ context.Context, chatID int64, now time.Time) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.Task
	for _, t := range f.tasks {
		if t.ChatID == chatID && !t.Done && !t.AllDay && t.DueAt.After(now) {
			res = append(res, *t)
		}
	}
	return res, nil
}

func (f *fakeRepo) MarkDone(_ context.Context, chatID, taskID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.ChatID != chatID {
		return store.ErrNotFound
	}
	t.Done = true
	return nil
}

func (f *fakeRepo) DeleteTask(_ context.Context, chatID, taskID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.ChatID != chatID {
		return store.ErrNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeRepo) GetSettings(_ context.Context, chatID int64) (*domain.ChatSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) UpsertSettings(_ context.Context, s *domain.ChatSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.settings[s.ChatID] = &cp
	return nil
}

func (f *fakeRepo) ListChatsWithSettings(_ context.Context) ([]domain.ChatSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.ChatSettings
	for _, s := range f.settings {
		res = append(res, *s)
	}
	return res, nil
}

func (f *fakeRepo) Close() error { return nil }

// fakeSender records every sent message.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendMessage(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
