package concert

import (
	"regexp"
	"strings"
	"time"
)

// listingDateFormats covers the date spellings seen across venue sites.
var listingDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006",
	"2006/01/02",
	"January 2, 2006",
	"2 January 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-01-2006",
	"01-02-2006",
	"2006.01.02",
}

var datePattern = regexp.MustCompile(
	`\d{1,2}[/\.-]\d{1,2}[/\.-]\d{2,4}|\d{4}[/\.-]\d{1,2}[/\.-]\d{1,2}|\d{1,2}\s+[A-Za-z]+\s+\d{4}|[A-Za-z]+\s+\d{1,2}\s*,?\s*\d{4}`)

// ExtractDateText returns the first thing in text that looks like a date,
// or "" when nothing matches.
func ExtractDateText(text string) string {
	return datePattern.FindString(text)
}

// ParseDate attempts to parse dateText against the known listing formats.
// Returns the zero time when nothing matches.
func ParseDate(dateText string) time.Time {
	dateText = strings.TrimSpace(dateText)
	if dateText == "" {
		return time.Time{}
	}
	for _, layout := range listingDateFormats {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t
		}
	}
	return time.Time{}
}

// polishMonths maps Polish month names, genitive and nominative, as they
// appear on Polish venue sites.
var polishMonths = map[string]time.Month{
	"stycznia":     time.January,
	"styczeń":      time.January,
	"lutego":       time.February,
	"luty":         time.February,
	"marca":        time.March,
	"marzec":       time.March,
	"kwietnia":     time.April,
	"kwiecień":     time.April,
	"maja":         time.May,
	"maj":          time.May,
	"czerwca":      time.June,
	"czerwiec":     time.June,
	"lipca":        time.July,
	"lipiec":       time.July,
	"sierpnia":     time.August,
	"sierpień":     time.August,
	"września":     time.September,
	"wrzesień":     time.September,
	"października": time.October,
	"październik":  time.October,
	"listopada":    time.November,
	"listopad":     time.November,
	"grudnia":      time.December,
	"grudzień":     time.December,
}

// ParseDayMonth parses short listing dates: numeric "DD.MM" and Polish
// month-name spellings ("13 maja", "13 maja 2025", "maj 2025"). Without an
// explicit year the year is taken from now; a date already in the past rolls
// over to next year since listings only announce upcoming concerts.
func ParseDayMonth(dateText string, now time.Time) time.Time {
	if m := regexp.MustCompile(`(\d{1,2})\.(\d{1,2})`).FindStringSubmatch(dateText); m != nil {
		return dayMonthDate(atoi(m[1]), atoi(m[2]), 0, now)
	}

	lower := strings.ToLower(dateText)
	if m := regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)(?:\s+(\d{4}))?`).FindStringSubmatch(lower); m != nil {
		if month, ok := polishMonths[m[2]]; ok {
			return dayMonthDate(atoi(m[1]), int(month), atoi(m[3]), now)
		}
	}
	// Month-year only ("maj 2025") pins the first of the month.
	if m := regexp.MustCompile(`(\p{L}+)\s+(\d{4})`).FindStringSubmatch(lower); m != nil {
		if month, ok := polishMonths[m[1]]; ok {
			return dayMonthDate(1, int(month), atoi(m[2]), now)
		}
	}
	return time.Time{}
}

func dayMonthDate(day, month, year int, now time.Time) time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	if year > 0 {
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	t := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Before(now.Truncate(24 * time.Hour)) {
		t = time.Date(now.Year()+1, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// WithClockTime merges a "HH:MM" time string into date. The date is returned
// unchanged when timeText has no parsable clock time.
func WithClockTime(date time.Time, timeText string) time.Time {
	m := regexp.MustCompile(`(\d{1,2})[:\.](\d{2})`).FindStringSubmatch(timeText)
	if m == nil {
		return date
	}
	hour := atoi(m[1])
	minute := atoi(m[2])
	if hour > 23 || minute > 59 {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
