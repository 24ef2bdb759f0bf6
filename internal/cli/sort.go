package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByAgenda SortOrder = "agenda" // upcoming first, then past; the collection order
	SortByDate   SortOrder = "date"
	SortByName   SortOrder = "name"
	SortByCity   SortOrder = "city"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortByAgenda, SortByDate, SortByName, SortByCity:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort: %s (must be 'agenda', 'date', 'name' or 'city')", s)
}

// sortRecords sorts records in place. A position given to the renderer still reorders
// upcoming records by distance; this order breaks ties.
func sortRecords(records []*event.Record, order SortOrder, today time.Time) {
	switch order {
	case SortByAgenda:
		event.SortByDate(records, today)
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Date.Before(records[j].Date)
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].NormalizedName != records[j].NormalizedName {
				return records[i].NormalizedName < records[j].NormalizedName
			}
			// If names are equal, sort by date
			return records[i].Date.Before(records[j].Date)
		})
	case SortByCity:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByPlace(records[i], records[j])
		})
	}
}

// compareByPlace orders by state, then city, then date. Records without a state go last.
func compareByPlace(i, j *event.Record) bool {
	si, sj := event.NormalizeKey(i.State), event.NormalizeKey(j.State)
	if si != sj {
		if si == "" || sj == "" {
			return sj == ""
		}
		return si < sj
	}

	ci, cj := event.NormalizeKey(i.City), event.NormalizeKey(j.City)
	if ci != cj {
		if ci == "" || cj == "" {
			return cj == ""
		}
		return ci < cj
	}
	return i.Date.Before(j.Date)
}
