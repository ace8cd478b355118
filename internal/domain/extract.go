package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrInvalidDateTime means a date/time was syntactically present but
	// semantically impossible (day 32, minute 99, Feb 30). It is surfaced
	// to the user verbatim, never auto-corrected.
	ErrInvalidDateTime = errors.New("invalid date or time")
	// ErrNoTemporalExpression is the normal "no date in this text" outcome;
	// callers branch on it with errors.Is and apply their own default.
	ErrNoTemporalExpression = errors.New("no temporal expression found")
)

// Result is a successfully resolved temporal expression.
type Result struct {
	DueUTC   time.Time // absolute due instant
	Residual string    // input text with the matched span removed
	AllDay   bool      // date without a clock component, pinned to 23:59 local
}

// Extract resolves the temporal expression in text against the chat's
// timezone. now must be the caller's current time; it is converted into loc.
//
// Strategies are tried in a fixed order and the first success wins:
// explicit "DD.MM HH:MM" pair, natural-language search, strict bare
// date-or-time fallback. Range violations abort immediately with
// ErrInvalidDateTime regardless of which strategy saw them.
func Extract(text string, loc *time.Location, now time.Time) (Result, error) {
	now = now.In(loc)
	toks := tokenize(text)
	if len(toks) == 0 {
		return Result{}, ErrNoTemporalExpression
	}

	for _, parse := range strategies {
		m, err := parse(toks, loc, now)
		if err != nil {
			return Result{}, err
		}
		if m == nil {
			continue
		}

		local := m.local
		allDay := m.hasDate && !m.hasClock && local.Hour() == 0 && local.Minute() == 0
		if allDay {
			local = time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 0, 0, loc)
		}
		// One-minute grace, then roll forward exactly one unit. An instant
		// with an explicitly written year is taken as-is.
		if local.Before(now.Add(-time.Minute)) {
			switch m.roll {
			case rollDay:
				local = local.AddDate(0, 0, 1)
			case rollWeek:
				local = local.AddDate(0, 0, 7)
			case rollYear:
				local = local.AddDate(1, 0, 0)
			}
		}

		return Result{
			DueUTC:   local.UTC(),
			Residual: residual(toks, m.used),
			AllDay:   allDay,
		}, nil
	}

	return Result{}, ErrNoTemporalExpression
}

// --- tokens ---

type token struct {
	raw   string // as typed, used to rebuild the residual
	lower string // punctuation-trimmed, lowercased, used for matching
}

const edgePunct = ",.;:!?()[]«»\"'—–-"

func tokenize(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		r, sz := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += sz
			continue
		}
		j := i
		for j < len(s) {
			r2, sz2 := utf8.DecodeRuneInString(s[j:])
			if unicode.IsSpace(r2) {
				break
			}
			j += sz2
		}
		raw := s[i:j]
		if trimmed := strings.Trim(raw, edgePunct); trimmed != "" {
			toks = append(toks, token{raw: raw, lower: strings.ToLower(trimmed)})
		}
		i = j
	}
	return toks
}

// --- strategy chain ---

type rollUnit int

const (
	rollNone rollUnit = iota
	rollDay
	rollWeek
	rollYear
)

type match struct {
	local    time.Time // resolved local date-time (midnight when no clock)
	hasDate  bool
	hasClock bool
	roll     rollUnit
	used     map[int]bool // consumed token indexes
}

type strategy func(toks []token, loc *time.Location, now time.Time) (*match, error)

// Order is a preserved design choice: explicit combined pattern beats the
// natural-language search, which beats the bare fallback.
var strategies = []strategy{
	parseExplicitCombined,
	parseNaturalLanguage,
	parseBareFallback,
}

// Anchored token shapes.
var (
	reTokDate  = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})(?:[./](\d{4}|\d{2}))?$`)
	reTokClock = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reTokHourH = regexp.MustCompile(`^(\d{1,2})h$`)
	reTokDay   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)
	reTokYear  = regexp.MustCompile(`^(\d{4})$`)
)

// clockPrepositions introduce a bare-hour clock ("at 5", "в 19").
var clockPrepositions = map[string]struct{}{
	"at": {}, "в": {}, "во": {}, "к": {},
}

// parseExplicitCombined matches a numeric date directly adjacent to a
// HH:MM clock, in either order.
func parseExplicitCombined(toks []token, loc *time.Location, now time.Time) (*match, error) {
	for i := 0; i+1 < len(toks); i++ {
		// Adjacent pair, or a pair glued by a single connective
		// ("08.08 в 16:00", "8/12 at 9:30").
		j := i + 1
		if isConnective(toks[j].lower) && j+1 < len(toks) {
			j++
		}
		dg := reTokDate.FindStringSubmatch(toks[i].lower)
		cg := reTokClock.FindStringSubmatch(toks[j].lower)
		if dg == nil || cg == nil {
			cg = reTokClock.FindStringSubmatch(toks[i].lower)
			dg = reTokDate.FindStringSubmatch(toks[j].lower)
		}
		if dg == nil || cg == nil {
			continue
		}

		day, month, year, explicitYear, err := dateComponents(dg, now)
		if err != nil {
			return nil, err
		}
		hour, minute, err := clockComponents(cg[1], cg[2])
		if err != nil {
			return nil, err
		}
		local, err := makeLocalDate(year, month, day, hour, minute, loc)
		if err != nil {
			return nil, err
		}

		roll := rollYear
		if explicitYear {
			roll = rollNone
		}
		used := make(map[int]bool, 3)
		for k := i; k <= j; k++ {
			used[k] = true
		}
		consumePrevConnective(toks, i, used)
		return &match{local: local, hasDate: true, hasClock: true, roll: roll, used: used}, nil
	}
	return nil, nil
}

// parseNaturalLanguage scans for relative day words, weekday names,
// "<day> <month-name>" pairs and clock components in free word order.
func parseNaturalLanguage(toks []token, loc *time.Location, now time.Time) (*match, error) {
	used := make(map[int]bool)

	var (
		haveDate, haveClock, havePrepClock bool
		dayOffset                          = -1
		wd                                 time.Weekday
		haveWeekday                        bool
		nmDay, nmYear                      int
		nmMonth                            time.Month
		haveNamedDate, explicitYear        bool
		hour, minute                       int
	)

	for i := 0; i < len(toks); i++ {
		if used[i] {
			continue
		}
		t := toks[i].lower

		// "day after tomorrow" phrase
		if !haveDate && t == "day" && i+2 < len(toks) &&
			toks[i+1].lower == "after" && toks[i+2].lower == "tomorrow" {
			dayOffset, haveDate = 2, true
			used[i], used[i+1], used[i+2] = true, true, true
			consumePrevConnective(toks, i, used)
			continue
		}
		if off, ok := relativeDays[t]; ok && !haveDate {
			dayOffset, haveDate = off, true
			used[i] = true
			continue
		}
		if w, ok := weekdayNames[t]; ok && !haveDate {
			wd, haveWeekday, haveDate = w, true, true
			used[i] = true
			consumePrevConnective(toks, i, used)
			continue
		}

		// "15 сентября [2026]" / "september 15[, 2026]"
		if !haveDate {
			if dg := reTokDay.FindStringSubmatch(t); dg != nil && i+1 < len(toks) {
				if m, ok := monthNames[toks[i+1].lower]; ok {
					nmDay, _ = strconv.Atoi(dg[1])
					nmMonth = m
					used[i], used[i+1] = true, true
					if i+2 < len(toks) {
						if yg := reTokYear.FindStringSubmatch(toks[i+2].lower); yg != nil {
							nmYear, _ = strconv.Atoi(yg[1])
							explicitYear = true
							used[i+2] = true
						}
					}
					haveNamedDate, haveDate = true, true
					consumePrevConnective(toks, i, used)
					continue
				}
			}
			if m, ok := monthNames[t]; ok && i+1 < len(toks) {
				if dg := reTokDay.FindStringSubmatch(toks[i+1].lower); dg != nil {
					nmDay, _ = strconv.Atoi(dg[1])
					nmMonth = m
					used[i], used[i+1] = true, true
					if i+2 < len(toks) {
						if yg := reTokYear.FindStringSubmatch(toks[i+2].lower); yg != nil {
							nmYear, _ = strconv.Atoi(yg[1])
							explicitYear = true
							used[i+2] = true
						}
					}
					haveNamedDate, haveDate = true, true
					consumePrevConnective(toks, i, used)
					continue
				}
			}
		}

		// clock token "HH:MM" — range violations abort right here
		if cg := reTokClock.FindStringSubmatch(t); cg != nil && !haveClock {
			h, m, err := clockComponents(cg[1], cg[2])
			if err != nil {
				return nil, err
			}
			hour, minute, haveClock = h, m, true
			used[i] = true
			if i > 0 && !used[i-1] {
				if _, ok := clockPrepositions[toks[i-1].lower]; ok {
					used[i-1] = true
					havePrepClock = true
				}
			}
			continue
		}
		// "14h" form
		if hg := reTokHourH.FindStringSubmatch(t); hg != nil && !haveClock {
			h, _, err := clockComponents(hg[1], "00")
			if err != nil {
				return nil, err
			}
			hour, minute, haveClock = h, 0, true
			used[i] = true
			consumePrevConnective(toks, i, used)
			continue
		}
		// bare hour after a clock preposition: "at 5", "в 19"
		if _, ok := clockPrepositions[t]; ok && !haveClock && i+1 < len(toks) {
			if dg := reTokDay.FindStringSubmatch(toks[i+1].lower); dg != nil && dg[0] == dg[1] {
				if h, err := strconv.Atoi(dg[1]); err == nil && h >= 0 && h <= 23 {
					hour, minute, haveClock, havePrepClock = h, 0, true, true
					used[i], used[i+1] = true, true
					continue
				}
			}
		}
	}

	// A lone bare "HH:MM" is not natural language; let the strict
	// fallback own it so the strategy order stays meaningful.
	if !haveDate && !havePrepClock {
		return nil, nil
	}

	base := now
	roll := rollDay
	switch {
	case haveNamedDate:
		year := now.Year()
		roll = rollYear
		if explicitYear {
			year, roll = nmYear, rollNone
		}
		if nmDay < 1 || nmDay > 31 {
			return nil, fmt.Errorf("%w: day %d", ErrInvalidDateTime, nmDay)
		}
		local, err := makeLocalDate(year, int(nmMonth), nmDay, hour, minute, loc)
		if err != nil {
			return nil, err
		}
		return &match{local: local, hasDate: true, hasClock: haveClock, roll: roll, used: used}, nil
	case haveWeekday:
		off := (int(wd) - int(now.Weekday()) + 7) % 7
		base = now.AddDate(0, 0, off)
		roll = rollWeek
	case dayOffset >= 0:
		base = now.AddDate(0, 0, dayOffset)
	}

	local := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
	return &match{local: local, hasDate: haveDate, hasClock: haveClock, roll: roll, used: used}, nil
}

// parseBareFallback accepts a lone numeric date (all-day) or a lone clock
// (today, or tomorrow if already passed).
func parseBareFallback(toks []token, loc *time.Location, now time.Time) (*match, error) {
	for i := range toks {
		dg := reTokDate.FindStringSubmatch(toks[i].lower)
		if dg == nil {
			continue
		}
		day, month, year, explicitYear, err := dateComponents(dg, now)
		if err != nil {
			return nil, err
		}
		local, err := makeLocalDate(year, month, day, 0, 0, loc)
		if err != nil {
			return nil, err
		}
		roll := rollYear
		if explicitYear {
			roll = rollNone
		}
		used := map[int]bool{i: true}
		consumePrevConnective(toks, i, used)
		return &match{local: local, hasDate: true, roll: roll, used: used}, nil
	}

	for i := range toks {
		var h, m int
		var err error
		if cg := reTokClock.FindStringSubmatch(toks[i].lower); cg != nil {
			h, m, err = clockComponents(cg[1], cg[2])
		} else if hg := reTokHourH.FindStringSubmatch(toks[i].lower); hg != nil {
			h, m, err = clockComponents(hg[1], "00")
		} else {
			continue
		}
		if err != nil {
			return nil, err
		}
		local := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, loc)
		used := map[int]bool{i: true}
		consumePrevConnective(toks, i, used)
		return &match{local: local, hasClock: true, roll: rollDay, used: used}, nil
	}

	return nil, nil
}

// --- shared pieces ---

func dateComponents(g []string, now time.Time) (day, month, year int, explicitYear bool, err error) {
	day, _ = strconv.Atoi(g[1])
	month, _ = strconv.Atoi(g[2])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return 0, 0, 0, false, fmt.Errorf("%w: %02d.%02d", ErrInvalidDateTime, day, month)
	}
	if g[3] != "" {
		year, _ = strconv.Atoi(g[3])
		if len(g[3]) == 2 {
			year += 2000
		}
		explicitYear = true
	} else {
		year = now.Year()
	}
	return day, month, year, explicitYear, nil
}

func clockComponents(hs, ms string) (hour, minute int, err error) {
	hour, _ = strconv.Atoi(hs)
	minute, _ = strconv.Atoi(ms)
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidDateTime, hour, minute)
	}
	return hour, minute, nil
}

// makeLocalDate builds the local instant and rejects dates that only exist
// after normalization (Feb 30 becomes Mar 2 and is reported as invalid).
func makeLocalDate(year, month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, fmt.Errorf("%w: no such date %02d.%02d.%04d", ErrInvalidDateTime, day, month, year)
	}
	return t, nil
}

func consumePrevConnective(toks []token, i int, used map[int]bool) {
	if i > 0 && !used[i-1] && isConnective(toks[i-1].lower) {
		used[i-1] = true
	}
}

// residual rebuilds the task text from unconsumed tokens and strips glue
// words and punctuation left dangling at the edges.
func residual(toks []token, used map[int]bool) string {
	var keep []token
	for i, t := range toks {
		if !used[i] {
			keep = append(keep, t)
		}
	}
	for len(keep) > 0 && isConnective(keep[0].lower) {
		keep = keep[1:]
	}
	for len(keep) > 0 && isConnective(keep[len(keep)-1].lower) {
		keep = keep[:len(keep)-1]
	}
	parts := make([]string, len(keep))
	for i, t := range keep {
		parts[i] = t.raw
	}
	return strings.Trim(strings.Join(parts, " "), edgePunct+" ")
}
