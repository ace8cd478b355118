package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
	"github.com/ykvlv/task-reminder-bot/internal/store"
)

// digestParser accepts the plain 5-field cron syntax. The CRON_TZ= prefix
// is handled by the parser itself, so every entry resolves fire times
// through the tz database (DST transitions shift the UTC instant, the
// local HH:MM stays fixed).
var digestParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Digests owns the per-chat recurring daily digest jobs: at most one cron
// entry per chat, replaced wholesale (cancel-then-create) whenever the
// chat's digest time or timezone changes.
type Digests struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// NewDigests creates a digest scheduler. Start must be called before any
// entry fires; Schedule may be called before or after Start.
func NewDigests(repo store.Repo, log *zap.Logger, sender Sender) *Digests {
	return &Digests{
		repo:   repo,
		log:    log,
		sender: sender,
		cron: cron.New(
			cron.WithParser(digestParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		entries: make(map[int64]cron.EntryID),
	}
}

// Start launches the cron engine.
func (d *Digests) Start() {
	d.cron.Start()
}

// Stop halts the cron engine and waits for running jobs to finish.
func (d *Digests) Stop() {
	<-d.cron.Stop().Done()
}

// digestSpec renders the chat's digest schedule as a cron expression
// anchored to its IANA timezone.
func digestSpec(set *domain.ChatSettings) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", set.TZ, set.DigestMinute, set.DigestHour)
}

// Schedule registers (or replaces) the chat's daily digest entry at its
// configured chat-local HH:MM.
func (d *Digests) Schedule(ctx context.Context, chatID int64) error {
	set, err := d.repo.GetSettings(ctx, chatID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.entries[chatID]; ok {
		d.cron.Remove(old)
		delete(d.entries, chatID)
	}

	id, err := d.cron.AddFunc(digestSpec(set), func() { d.fire(chatID) })
	if err != nil {
		return fmt.Errorf("schedule digest for chat %d: %w", chatID, err)
	}
	d.entries[chatID] = id
	return nil
}

// Cancel removes the chat's digest entry, if any.
func (d *Digests) Cancel(chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.entries[chatID]; ok {
		d.cron.Remove(old)
		delete(d.entries, chatID)
	}
}

func (d *Digests) entryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// fire assembles and sends one chat's digest. Every failure is logged and
// contained: a broken chat never stalls the digests of the others.
func (d *Digests) fire(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	set, err := d.repo.GetSettings(ctx, chatID)
	if err != nil {
		d.log.Error("digest: settings read failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	loc := set.Location()
	today := time.Now().In(loc)

	tasks, err := d.repo.FetchForLocalDay(ctx, chatID, today, loc)
	if err != nil {
		d.log.Error("digest: day query failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}

	text := domain.DigestText(set.Language, today, tasks, loc)
	if err := d.sender.SendMessage(chatID, text); err != nil {
		d.log.Error("digest: send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}
