package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the card date format (dd/mm/yy)
const DateLayout = "02/01/06"

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dateSeparators = regexp.MustCompile(`[/\-.\s]+`)
	nonDigits      = regexp.MustCompile(`\D`)
)

// genericLayouts are tried last, after the day-first rules
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
}

// ParseDate parses a spreadsheet date cell into a calendar date (UTC midnight).
// Returns false when the text is not a valid date.
// Supports "2025-03-05", "2025/3/5", "05/03/2025", "5.3.25", "05-03" (current year)
// and a few written-out English formats as a last resort.
func ParseDate(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// ISO-like year first
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return calendarDate(y, mo, d)
	}

	// Day-first numeric parts
	parts := nonEmpty(dateSeparators.Split(s, -1))
	if len(parts) >= 2 {
		day := nonDigits.ReplaceAllString(parts[0], "")
		month := nonDigits.ReplaceAllString(parts[1], "")
		if day != "" && month != "" {
			d, errD := strconv.Atoi(day)
			mo, errM := strconv.Atoi(month)
			if errD != nil || errM != nil {
				return time.Time{}, false
			}

			y := now.Year()
			if len(parts) >= 3 {
				year := nonDigits.ReplaceAllString(parts[2], "")
				if year == "" {
					return time.Time{}, false
				}
				var err error
				if y, err = strconv.Atoi(year); err != nil {
					return time.Time{}, false
				}
			}
			if y < 100 {
				y += 2000
			}
			if y < 1900 {
				y = now.Year()
			}
			return calendarDate(y, mo, d)
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

// calendarDate builds a date and rejects values that would roll over (31/02, month 13)
func calendarDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Today returns the calendar day of now, as UTC midnight.
// Record dates use the same representation so they compare directly.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBefore returns how many whole days date lies before today (negative if after)
func DaysBefore(date, today time.Time) int {
	return int(today.Sub(date).Hours() / 24)
}

// FormatDate renders a calendar date as dd/mm/yy, or "" for the zero date
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// IsPast reports whether the record is dated strictly before today
func (r *Record) IsPast(today time.Time) bool {
	return !r.Date.IsZero() && r.Date.Before(today)
}

// IsUpcoming reports whether the record is dated today or later
func (r *Record) IsUpcoming(today time.Time) bool {
	return !r.Date.IsZero() && !r.Date.Before(today)
}

// IsRecentlyPast reports whether the record happened one to three days ago.
// Display-only: recently past records are never filtered out for it.
func (r *Record) IsRecentlyPast(today time.Time) bool {
	return r.IsPast(today) && DaysBefore(r.Date, today) <= 3
}

// IsStale reports whether the record is more than maxDays days in the past
func (r *Record) IsStale(today time.Time, maxDays int) bool {
	if r.Date.IsZero() {
		return true
	}
	cutoff := today.AddDate(0, 0, -maxDays)
	return r.Date.Before(cutoff)
}
