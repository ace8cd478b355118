package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/scheduler"
	"github.com/ykvlv/task-reminder-bot/internal/store"
)

// Defaults applied when a chat writes for the first time.
type Defaults struct {
	TZ           string
	DigestHour   int
	DigestMinute int
	LeadMinutes  int
}

// Router wires Telegram updates to handlers.
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	repo      store.Repo
	reminders *scheduler.Reminders
	digests   *scheduler.Digests
	defaults  Defaults
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo,
	reminders *scheduler.Reminders, digests *scheduler.Digests, defaults Defaults) *Router {
	return &Router{
		bot:       bot,
		log:       log,
		repo:      repo,
		reminders: reminders,
		digests:   digests,
		defaults:  defaults,
	}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	msg := upd.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	cmd, args := splitCommand(text)
	switch cmd {
	case "/start", "/help":
		r.handleStart(ctx, chatID, text)
	case "/add":
		r.handleAdd(ctx, chatID, args)
	case "/today":
		r.handleToday(ctx, chatID)
	case "/on":
		r.handleOn(ctx, chatID, args)
	case "/daily":
		r.handleDaily(ctx, chatID, args)
	case "/tz":
		r.handleTZ(ctx, chatID, args)
	case "/lead":
		r.handleLead(ctx, chatID, args)
	case "/reminders":
		r.handleReminders(ctx, chatID, args)
	case "/done":
		r.handleDone(ctx, chatID, args)
	case "/del", "/delete":
		r.handleDelete(ctx, chatID, args)
	case "/lang":
		r.handleLang(ctx, chatID, args)
	default:
		// Plain text is treated like /add; unparsable text gets a hint.
		r.handleFreeForm(ctx, chatID, text)
	}
}

// splitCommand separates a leading "/cmd" (with optional @botname suffix)
// from its argument tail. Non-command text returns cmd "".
func splitCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, tail, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(head, '@'); at > 0 {
		head = head[:at]
	}
	return head, strings.TrimSpace(tail)
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
