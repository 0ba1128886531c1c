package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// monthNames are indexed by time.Month-1. "setiembre" is accepted as an
// alternate spelling of septiembre.
var monthNames = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var monthPattern = regexp.MustCompile(`(?i)(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)`)

// NextTitle replaces the first month name found in title with the name of
// the following month, keeping the matched casing style. Titles without a
// month name are returned unchanged.
func NextTitle(title string) string {
	loc := monthPattern.FindStringIndex(title)
	if loc == nil {
		return title
	}
	matched := title[loc[0]:loc[1]]
	month := monthIndex(strings.ToLower(matched))
	next := monthNames[(month+1)%12]
	return title[:loc[0]] + matchCase(matched, next) + title[loc[1]:]
}

func monthIndex(name string) int {
	if name == "setiembre" {
		return 8
	}
	for i, m := range monthNames {
		if m == name {
			return i
		}
	}
	return 0
}

func matchCase(model, word string) string {
	if strings.ToUpper(model) == model {
		return strings.ToUpper(word)
	}
	first, _ := utf8.DecodeRuneInString(model)
	if unicode.IsUpper(first) {
		return strings.ToUpper(word[:1]) + word[1:]
	}
	return word
}

// AddMonthClamped returns the same day and time of day one calendar month
// later. Days that do not exist in the next month clamp to its last day.
func AddMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, min, sec := t.Clock()
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// NextPeriod advances a PeriodLayout period by one month. An unparsable
// period is derived from fallback instead.
func NextPeriod(period string, fallback time.Time) string {
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		t = fallback
	}
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).Format(PeriodLayout)
}
