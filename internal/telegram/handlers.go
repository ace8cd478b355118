package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
	"github.com/ykvlv/task-reminder-bot/internal/store"
)

// ensureSettings loads a chat's settings, creating a defaults row on first
// contact. sample is the triggering message text, used only to guess the
// chat language once.
func (r *Router) ensureSettings(ctx context.Context, chatID int64, sample string) (*domain.ChatSettings, error) {
	set, err := r.repo.GetSettings(ctx, chatID)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	set = &domain.ChatSettings{
		ChatID:           chatID,
		TZ:               r.defaults.TZ,
		DigestHour:       r.defaults.DigestHour,
		DigestMinute:     r.defaults.DigestMinute,
		LeadMinutes:      r.defaults.LeadMinutes,
		RemindersEnabled: true,
		Language:         domain.DetectLanguage(sample),
	}
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		return nil, err
	}
	if err := r.digests.Schedule(ctx, chatID); err != nil {
		r.log.Error("digest schedule failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	return set, nil
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// --- commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64, sample string) {
	set, err := r.ensureSettings(ctx, chatID, sample)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, textsFor(domain.LangEN).internalError)
		return
	}
	msg := tgbotapi.NewMessage(chatID, textsFor(set.Language).start)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) handleAdd(ctx context.Context, chatID int64, payload string) {
	r.addTask(ctx, chatID, payload)
}

// handleFreeForm treats any plain message as a task; the no-match outcome
// turns into a format hint rather than a silent drop.
func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	r.addTask(ctx, chatID, text)
}

func (r *Router) addTask(ctx context.Context, chatID int64, payload string) {
	set, err := r.ensureSettings(ctx, chatID, payload)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, textsFor(domain.LangEN).internalError)
		return
	}
	ui := textsFor(set.Language)
	loc := set.Location()

	res, err := domain.Extract(payload, loc, time.Now())
	switch {
	case errors.Is(err, domain.ErrInvalidDateTime):
		// Surfaced verbatim, never guessed around.
		r.sendText(chatID, fmt.Sprintf(ui.invalidDate, err.Error()))
		return
	case errors.Is(err, domain.ErrNoTemporalExpression):
		r.sendText(chatID, ui.formatHint)
		return
	case err != nil:
		r.log.Error("extract failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}

	text := res.Residual
	if text == "" {
		text = domain.Untitled(set.Language)
	}
	task := &domain.Task{
		ChatID:    chatID,
		Text:      text,
		DueAt:     res.DueUTC,
		CreatedAt: time.Now().UTC(),
		AllDay:    res.AllDay,
	}
	id, err := r.repo.SaveTask(ctx, task)
	if err != nil {
		r.log.Error("save task failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	task.ID = id

	r.reminders.Schedule(set, task)

	leadNote := ""
	if set.RemindersEnabled && set.LeadMinutes > 0 && !task.AllDay {
		leadNote = fmt.Sprintf(" (⏰ -%dm)", set.LeadMinutes)
	}
	r.sendText(chatID, fmt.Sprintf(ui.added, task.Text, domain.FormatDueLocal(task, loc), leadNote))
}

func (r *Router) handleToday(ctx context.Context, chatID int64) {
	set, err := r.ensureSettings(ctx, chatID, "")
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)
	loc := set.Location()
	now := time.Now().In(loc)

	tasks, err := r.repo.FetchForLocalDay(ctx, chatID, now, loc)
	if err != nil {
		r.log.Error("day query failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	r.sendText(chatID, fmt.Sprintf(ui.todayTitle, now.Format("02.01"))+"\n"+
		domain.TaskList(set.Language, tasks, loc))
}

func (r *Router) handleOn(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)
	loc := set.Location()

	res, err := domain.Extract(args, loc, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDateTime) {
			r.sendText(chatID, fmt.Sprintf(ui.invalidDate, err.Error()))
			return
		}
		r.sendText(chatID, ui.onHint)
		return
	}
	day := res.DueUTC.In(loc)

	tasks, err := r.repo.FetchForLocalDay(ctx, chatID, day, loc)
	if err != nil {
		r.log.Error("day query failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	r.sendText(chatID, fmt.Sprintf(ui.onTitle, day.Format("02.01"))+"\n"+
		domain.TaskList(set.Language, tasks, loc))
}

func (r *Router) handleDaily(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	hour, minute, err := domain.ParseClock(args)
	if err != nil {
		r.sendText(chatID, ui.dailyHint)
		return
	}
	set.DigestHour, set.DigestMinute = hour, minute
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		r.log.Error("settings update failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	if err := r.digests.Schedule(ctx, chatID); err != nil {
		r.log.Error("digest reschedule failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	r.sendText(chatID, fmt.Sprintf(ui.dailySet, fmt.Sprintf("%02d:%02d", hour, minute), set.TZ))
}

func (r *Router) handleTZ(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	tz, err := domain.ValidateTZ(args)
	if err != nil {
		r.sendText(chatID, ui.tzHint)
		return
	}
	set.TZ = tz
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		r.log.Error("settings update failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	// Timezone shifts both job kinds: digest fire time and reminder leads.
	if err := r.digests.Schedule(ctx, chatID); err != nil {
		r.log.Error("digest reschedule failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	if err := r.reminders.RescheduleAll(ctx, chatID); err != nil {
		r.log.Error("reminder reschedule failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	r.sendText(chatID, fmt.Sprintf(ui.tzSet, tz))
}

func (r *Router) handleLead(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	minutes, err := strconv.Atoi(args)
	if err != nil || minutes < 0 || minutes > 1440 {
		r.sendText(chatID, ui.leadHint)
		return
	}
	set.LeadMinutes = minutes
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		r.log.Error("settings update failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	if err := r.reminders.RescheduleAll(ctx, chatID); err != nil {
		r.log.Error("reminder reschedule failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	if minutes == 0 {
		r.sendText(chatID, ui.leadOff)
		return
	}
	r.sendText(chatID, fmt.Sprintf(ui.leadSet, minutes))
}

func (r *Router) handleReminders(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	switch strings.ToLower(args) {
	case "on":
		set.RemindersEnabled = true
	case "off":
		set.RemindersEnabled = false
	default:
		r.sendText(chatID, ui.remindersHint)
		return
	}
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		r.log.Error("settings update failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	if err := r.reminders.RescheduleAll(ctx, chatID); err != nil {
		r.log.Error("reminder reschedule failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
	if set.RemindersEnabled {
		r.sendText(chatID, ui.remindersOn)
		return
	}
	r.sendText(chatID, ui.remindersOff)
}

func (r *Router) handleDone(ctx context.Context, chatID int64, args string) {
	r.completeOrDelete(ctx, chatID, args, true)
}

func (r *Router) handleDelete(ctx context.Context, chatID int64, args string) {
	r.completeOrDelete(ctx, chatID, args, false)
}

func (r *Router) completeOrDelete(ctx context.Context, chatID int64, args string, markDone bool) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	id, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
	if err != nil || id <= 0 {
		r.sendText(chatID, ui.idHint)
		return
	}

	if markDone {
		err = r.repo.MarkDone(ctx, chatID, id)
	} else {
		err = r.repo.DeleteTask(ctx, chatID, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, ui.unknownTask)
		return
	}
	if err != nil {
		r.log.Error("task update failed", zap.Error(err), zap.Int64("chatID", chatID), zap.Int64("taskID", id))
		r.sendText(chatID, ui.internalError)
		return
	}

	// The edit replaces the job wholesale; here "replace" means remove.
	r.reminders.Cancel(chatID, id)

	if markDone {
		r.sendText(chatID, fmt.Sprintf(ui.doneOK, id))
		return
	}
	r.sendText(chatID, fmt.Sprintf(ui.deletedOK, id))
}

func (r *Router) handleLang(ctx context.Context, chatID int64, args string) {
	set, err := r.ensureSettings(ctx, chatID, args)
	if err != nil {
		r.log.Error("ensureSettings failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	ui := textsFor(set.Language)

	lang := strings.ToLower(args)
	if lang != domain.LangEN && lang != domain.LangRU {
		r.sendText(chatID, ui.langHint)
		return
	}
	set.Language = lang
	if err := r.repo.UpsertSettings(ctx, set); err != nil {
		r.log.Error("settings update failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, ui.internalError)
		return
	}
	r.sendText(chatID, textsFor(lang).langSet)
}
