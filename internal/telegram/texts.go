package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/task-reminder-bot/internal/domain"
)

// uiText holds every user-visible string of one language.
type uiText struct {
	start         string
	formatHint    string
	invalidDate   string
	added         string // fmt: task text, local due, lead note
	todayTitle    string // fmt: DD.MM
	onTitle       string // fmt: DD.MM
	onHint        string
	dailySet      string // fmt: HH:MM, tz
	dailyHint     string
	tzSet         string // fmt: tz
	tzHint        string
	leadSet       string // fmt: minutes
	leadOff       string
	leadHint      string
	remindersOn   string
	remindersOff  string
	remindersHint string
	doneOK        string // fmt: id
	deletedOK     string // fmt: id
	idHint        string
	unknownTask   string
	langSet       string
	langHint      string
	internalError string
}

var texts = map[string]uiText{
	domain.LangEN: {
		start: "👋 I track your tasks.\n\n" +
			"Just send me a message like:\n" +
			"16:00 08.08 Call mom\n" +
			"tomorrow at 10 standup\n" +
			"15.09 file the report\n\n" +
			"Commands:\n" +
			"/add <when> <text> — add a task\n" +
			"/today — today's plan\n" +
			"/on <date> — plan for a day\n" +
			"/daily HH:MM — digest time\n" +
			"/tz <IANA zone> — timezone\n" +
			"/lead <minutes> — reminder lead time\n" +
			"/reminders on|off\n" +
			"/done <id>, /del <id>\n" +
			"/lang en|ru",
		formatHint:    "I didn't find a date or time there. Try \"16:00 08.08 Call mom\" or \"tomorrow at 10 standup\".",
		invalidDate:   "That date/time doesn't exist: %s",
		added:         "Added: %s\nDue %s%s",
		todayTitle:    "Today (%s):",
		onTitle:       "Plan for %s:",
		onHint:        "Usage: /on DD.MM (e.g. /on 16.08)",
		dailySet:      "Daily digest will arrive at %s (%s).",
		dailyHint:     "Usage: /daily HH:MM (e.g. /daily 09:30)",
		tzSet:         "Timezone set to %s. Reminders were re-scheduled.",
		tzHint:        "Usage: /tz Area/City (e.g. /tz Europe/Amsterdam)",
		leadSet:       "Reminders now fire %d minutes before a task.",
		leadOff:       "Lead time 0 — reminders are effectively off.",
		leadHint:      "Usage: /lead <minutes>, 0..1440",
		remindersOn:   "Reminders enabled.",
		remindersOff:  "Reminders disabled.",
		remindersHint: "Usage: /reminders on|off",
		doneOK:        "Done: #%d ✅",
		deletedOK:     "Deleted: #%d 🗑",
		idHint:        "Usage: /done <id> or /del <id> — ids are shown in lists.",
		unknownTask:   "No such task.",
		langSet:       "Language switched to English.",
		langHint:      "Usage: /lang en|ru",
		internalError: "Something broke on my side. Please try again later.",
	},
	domain.LangRU: {
		start: "👋 Я трекер задач.\n\n" +
			"Просто пришли сообщение вида:\n" +
			"16:00 08.08 Позвонить маме\n" +
			"завтра в 10 созвон\n" +
			"15.09 сдать отчёт\n\n" +
			"Команды:\n" +
			"/add <когда> <текст> — добавить задачу\n" +
			"/today — план на сегодня\n" +
			"/on <дата> — план на день\n" +
			"/daily HH:MM — время сводки\n" +
			"/tz <IANA-зона> — часовой пояс\n" +
			"/lead <минуты> — за сколько напоминать\n" +
			"/reminders on|off\n" +
			"/done <id>, /del <id>\n" +
			"/lang en|ru",
		formatHint:    "Не нашёл дату или время. Попробуй «16:00 08.08 Позвонить маме» или «завтра в 10 созвон».",
		invalidDate:   "Такой даты/времени не существует: %s",
		added:         "Добавил: %s\nНа %s%s",
		todayTitle:    "Сегодня (%s):",
		onTitle:       "План на %s:",
		onHint:        "Формат: /on DD.MM (например, /on 16.08)",
		dailySet:      "Сводка будет приходить в %s (%s).",
		dailyHint:     "Формат: /daily HH:MM (например, /daily 09:30)",
		tzSet:         "Часовой пояс: %s. Напоминания перепланированы.",
		tzHint:        "Формат: /tz Area/City (например, /tz Europe/Moscow)",
		leadSet:       "Напоминания приходят за %d минут до задачи.",
		leadOff:       "Интервал 0 — напоминания фактически выключены.",
		leadHint:      "Формат: /lead <минуты>, 0..1440",
		remindersOn:   "Напоминания включены.",
		remindersOff:  "Напоминания выключены.",
		remindersHint: "Формат: /reminders on|off",
		doneOK:        "Готово: #%d ✅",
		deletedOK:     "Удалил: #%d 🗑",
		idHint:        "Формат: /done <id> или /del <id> — id видно в списках.",
		unknownTask:   "Нет такой задачи.",
		langSet:       "Переключил язык на русский.",
		langHint:      "Формат: /lang en|ru",
		internalError: "Что-то сломалось. Попробуй ещё раз позже.",
	},
}

func textsFor(lang string) uiText {
	if t, ok := texts[lang]; ok {
		return t
	}
	return texts[domain.LangEN]
}

// mainMenuKeyboard is the persistent reply keyboard under the input field.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/today"),
			tgbotapi.NewKeyboardButton("/start"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
