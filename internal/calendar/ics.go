// Package calendar exports training events as iCalendar (RFC 5545) data.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
)

const (
	prodID    = "-//Agenda Lojas//agenda//PT"
	uidDomain = "agenda-lojas"
)

// DefaultCalendarName names calendars exported without an explicit name
const DefaultCalendarName = "Agenda de treinamentos"

// GenerateICS generates an iCalendar (.ics) file for one training
func GenerateICS(r *event.Record) string {
	return generate([]*event.Record{r}, "", time.Now())
}

// GenerateBulkICS generates one iCalendar file holding every record. Records without a
// valid date are skipped; an empty input yields an empty string.
func GenerateBulkICS(records []*event.Record, calendarName string) string {
	if len(records) == 0 {
		return ""
	}
	if calendarName == "" {
		calendarName = DefaultCalendarName
	}
	return generate(records, calendarName, time.Now())
}

func generate(records []*event.Record, calendarName string, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString(fmt.Sprintf("PRODID:%s\r\n", prodID))
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if calendarName != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(calendarName)))
		ics.WriteString("X-WR-TIMEZONE:America/Sao_Paulo\r\n")
	}

	for _, r := range records {
		if r == nil || !r.Valid() {
			continue
		}
		writeEvent(&ics, r, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, r *event.Record, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	id := r.ID
	if id == "" {
		id = event.GenerateID(r.Name, r.Date, r.Shift)
	}
	ics.WriteString(fmt.Sprintf("UID:%s@%s\r\n", id, uidDomain))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))

	// Trainings carry a date and a shift label, not a time, so they are all-day events
	ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", formatICSDate(r.Date)))
	ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", formatICSDate(r.Date.AddDate(0, 0, 1))))

	summary := fmt.Sprintf("Treinamento - %s", r.Name)
	if r.Shift != "" {
		summary = fmt.Sprintf("%s (%s)", summary, r.Shift)
	}
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(summary)))

	description := fmt.Sprintf("Data: %s", event.FormatDate(r.Date))
	if r.Shift != "" {
		description += fmt.Sprintf("\nTurno: %s", r.Shift)
	}
	if r.Link != "" {
		description += fmt.Sprintf("\n\nInscrição: %s", r.Link)
	}
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description)))

	if loc := location(r); loc != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(loc)))
	}
	if r.HasCoordinates() {
		ics.WriteString(fmt.Sprintf("GEO:%.6f;%.6f\r\n", *r.Latitude, *r.Longitude))
	}
	if r.Link != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", r.Link))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func location(r *event.Record) string {
	parts := []string{r.Name}
	if r.City != "" {
		parts = append(parts, r.City)
	}
	if r.State != "" {
		parts = append(parts, r.State)
	}
	return strings.Join(parts, ", ")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatICSDate formats the calendar day of t as an iCalendar date
func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 section 3.3.11
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
