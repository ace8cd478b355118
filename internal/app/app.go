package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/config"
	"github.com/ykvlv/task-reminder-bot/internal/scheduler"
	"github.com/ykvlv/task-reminder-bot/internal/store"
	"github.com/ykvlv/task-reminder-bot/internal/telegram"
)

type App struct {
	cfg       config.Config
	log       *zap.Logger
	bot       *tgbotapi.BotAPI
	httpSrv   *http.Server
	repo      store.Repo
	router    *telegram.Router
	reminders *scheduler.Reminders
	digests   *scheduler.Digests
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting task-reminder-bot", zap.String("http", a.cfg.HTTPAddr))

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	a.reminders = scheduler.NewReminders(repo, a.log, a)
	a.digests = scheduler.NewDigests(repo, a.log, a)

	hour, minute := a.cfg.DigestClock()
	a.router = telegram.NewRouter(a.bot, a.log, repo, a.reminders, a.digests, telegram.Defaults{
		TZ:           a.cfg.DefaultTZ,
		DigestHour:   hour,
		DigestMinute: minute,
		LeadMinutes:  a.cfg.DefaultLeadMin,
	})

	a.recoverJobs(ctx)
	a.digests.Start()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// recoverJobs re-registers every chat's digest entry and reminder timers
// after a restart; the in-memory jobs do not survive the process.
func (a *App) recoverJobs(ctx context.Context) {
	chats, err := a.repo.ListChatsWithSettings(ctx)
	if err != nil {
		a.log.Error("job recovery query failed", zap.Error(err))
		return
	}
	for _, set := range chats {
		if err := a.digests.Schedule(ctx, set.ChatID); err != nil {
			a.log.Error("digest recovery failed", zap.Error(err), zap.Int64("chatID", set.ChatID))
		}
		if err := a.reminders.RescheduleAll(ctx, set.ChatID); err != nil {
			a.log.Error("reminder recovery failed", zap.Error(err), zap.Int64("chatID", set.ChatID))
		}
	}
	a.log.Info("jobs recovered", zap.Int("chats", len(chats)))
}

func (a *App) shutdown() {
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	a.digests.Stop()
	a.reminders.Stop()
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// SendMessage lets App satisfy scheduler.Sender by delegating to the router.
func (a *App) SendMessage(chatID int64, text string) error {
	return a.router.SendMessage(chatID, text)
}
