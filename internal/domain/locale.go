package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Supported UI/parse languages.
const (
	LangEN = "en"
	LangRU = "ru"
)

// DetectLanguage makes a cheap guess from the first message of a chat:
// any cyrillic letter switches the chat to Russian.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return LangRU
		}
	}
	return LangEN
}

// monthNames maps lowercase month words of all supported languages to the
// calendar month. Russian carries both nominative and genitive forms since
// dates are usually written "15 сентября".
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,

	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "sept": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,

	"январь": time.January, "января": time.January,
	"февраль": time.February, "февраля": time.February,
	"март": time.March, "марта": time.March,
	"апрель": time.April, "апреля": time.April,
	"май": time.May, "мая": time.May,
	"июнь": time.June, "июня": time.June,
	"июль": time.July, "июля": time.July,
	"август": time.August, "августа": time.August,
	"сентябрь": time.September, "сентября": time.September,
	"октябрь": time.October, "октября": time.October,
	"ноябрь": time.November, "ноября": time.November,
	"декабрь": time.December, "декабря": time.December,
}

// weekdayNames maps lowercase weekday words to time.Weekday.
var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,

	"понедельник": time.Monday, "вторник": time.Tuesday, "среда": time.Wednesday,
	"среду": time.Wednesday, "четверг": time.Thursday, "пятница": time.Friday,
	"пятницу": time.Friday, "суббота": time.Saturday, "субботу": time.Saturday,
	"воскресенье": time.Sunday,
}

// relativeDays maps relative day words to an offset from "today".
var relativeDays = map[string]int{
	"today": 0, "tonight": 0, "tomorrow": 1,
	"сегодня": 0, "завтра": 1, "послезавтра": 2,
}

// connectives are glue words stripped from the edges of the residual task
// text after the temporal span is removed.
var connectives = map[string]struct{}{
	"at": {}, "on": {}, "by": {}, "in": {}, "the": {},
	"в": {}, "во": {}, "к": {}, "на": {}, "до": {}, "у": {},
}

func isConnective(word string) bool {
	_, ok := connectives[strings.ToLower(word)]
	return ok
}

// --- Localized message texts produced by the schedulers ---

// Untitled is the placeholder for tasks whose text is empty after the
// temporal expression was cut out.
func Untitled(lang string) string {
	if lang == LangRU {
		return "Без названия"
	}
	return "Untitled"
}

// ReminderText renders the lead-time reminder message.
func ReminderText(lang string, t *Task, loc *time.Location) string {
	when := t.DueAt.In(loc).Format("15:04")
	if lang == LangRU {
		return fmt.Sprintf("⏰ Скоро: %s (в %s)", t.Text, when)
	}
	return fmt.Sprintf("⏰ Coming up: %s (at %s)", t.Text, when)
}

// DigestText renders the daily digest body for the given local day.
// Tasks are expected in display order already (all-day first, then by time).
func DigestText(lang string, day time.Time, tasks []Task, loc *time.Location) string {
	var b strings.Builder
	if lang == LangRU {
		fmt.Fprintf(&b, "Доброе утро! План на сегодня (%s):\n", day.Format("02.01"))
	} else {
		fmt.Fprintf(&b, "Good morning! Your plan for today (%s):\n", day.Format("02.01"))
	}
	b.WriteString(TaskList(lang, tasks, loc))
	return b.String()
}

// TaskList renders one task per line, or a localized "nothing scheduled"
// stub instead of an empty body.
func TaskList(lang string, tasks []Task, loc *time.Location) string {
	if len(tasks) == 0 {
		if lang == LangRU {
			return "Пока пусто — ничего не запланировано."
		}
		return "Nothing scheduled."
	}
	lines := make([]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		switch {
		case t.AllDay && lang == LangRU:
			lines = append(lines, fmt.Sprintf("• весь день — %s (#%d)", t.Text, t.ID))
		case t.AllDay:
			lines = append(lines, fmt.Sprintf("• all day — %s (#%d)", t.Text, t.ID))
		default:
			lines = append(lines, fmt.Sprintf("• %s — %s (#%d)", t.DueAt.In(loc).Format("15:04"), t.Text, t.ID))
		}
	}
	return strings.Join(lines, "\n")
}
