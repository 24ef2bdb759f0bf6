package event

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantYear  int
		wantMonth time.Month
		wantDay   int
		wantOK    bool
	}{
		{name: "day first slash", raw: "05/03/2025", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "iso dash", raw: "2025-03-05", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "iso slash single digits", raw: "2025/3/5", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "dots two digit year", raw: "5.3.25", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "dash day first", raw: "17-10-2025", wantYear: 2025, wantMonth: time.October, wantDay: 17, wantOK: true},
		{name: "whitespace separated", raw: "17 10 2025", wantYear: 2025, wantMonth: time.October, wantDay: 17, wantOK: true},
		{name: "missing year defaults to current", raw: "24/12", wantYear: 2025, wantMonth: time.December, wantDay: 24, wantOK: true},
		{name: "implausible year resets to current", raw: "01/02/1850", wantYear: 2025, wantMonth: time.February, wantDay: 1, wantOK: true},
		{name: "noise around digits", raw: "dia 05/03/2025", wantYear: 0, wantOK: false},
		{name: "weekday suffix is ignored", raw: "05/03/2025 (qua)", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "written month falls back to generic parse", raw: "Mar 5 2025", wantYear: 2025, wantMonth: time.March, wantDay: 5, wantOK: true},
		{name: "invalid calendar date", raw: "31/02/2025", wantOK: false},
		{name: "month out of range", raw: "10/13/2025", wantOK: false},
		{name: "iso invalid day", raw: "2025-02-30", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
		{name: "whitespace only", raw: "   ", wantOK: false},
		{name: "not a date", raw: "a combinar", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw, fixedNow)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v (got %v)", tt.raw, ok, tt.wantOK, got)
			}
			if !ok {
				if !got.IsZero() {
					t.Errorf("ParseDate(%q) = %v, want zero time", tt.raw, got)
				}
				return
			}

			if got.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q).Year() = %d, want %d", tt.raw, got.Year(), tt.wantYear)
			}
			if got.Month() != tt.wantMonth {
				t.Errorf("ParseDate(%q).Month() = %v, want %v", tt.raw, got.Month(), tt.wantMonth)
			}
			if got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q).Day() = %d, want %d", tt.raw, got.Day(), tt.wantDay)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Location() != time.UTC {
				t.Errorf("ParseDate(%q) = %v, want UTC midnight", tt.raw, got)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "05/03/25" {
		t.Errorf("FormatDate() = %q, want %q", got, "05/03/25")
	}
	if got := FormatDate(time.Time{}); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}
}

func TestRecordDateHelpers(t *testing.T) {
	today := Today(fixedNow)

	tests := []struct {
		name         string
		daysAgo      int
		wantPast     bool
		wantUpcoming bool
		wantRecent   bool
		wantStale    bool
	}{
		{name: "tomorrow", daysAgo: -1, wantUpcoming: true},
		{name: "today", daysAgo: 0, wantUpcoming: true},
		{name: "yesterday", daysAgo: 1, wantPast: true, wantRecent: true},
		{name: "three days ago", daysAgo: 3, wantPast: true, wantRecent: true},
		{name: "four days ago", daysAgo: 4, wantPast: true},
		{name: "five days ago", daysAgo: 5, wantPast: true, wantStale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Name: "Loja", Date: today.AddDate(0, 0, -tt.daysAgo)}
			if got := r.IsPast(today); got != tt.wantPast {
				t.Errorf("IsPast() = %v, want %v", got, tt.wantPast)
			}
			if got := r.IsUpcoming(today); got != tt.wantUpcoming {
				t.Errorf("IsUpcoming() = %v, want %v", got, tt.wantUpcoming)
			}
			if got := r.IsRecentlyPast(today); got != tt.wantRecent {
				t.Errorf("IsRecentlyPast() = %v, want %v", got, tt.wantRecent)
			}
			if got := r.IsStale(today, StaleAfterDays); got != tt.wantStale {
				t.Errorf("IsStale() = %v, want %v", got, tt.wantStale)
			}
		})
	}
}
