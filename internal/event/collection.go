package event

import (
	"sort"
	"time"
)

// StaleAfterDays is how many days a past training stays in the working set
const StaleAfterDays = 4

// SortByDate orders records in place: records dated today or later come first,
// past records after them, each group ascending by date. The sort is stable.
func SortByDate(records []*Record, today time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		return compareByDate(records[i], records[j], today)
	})
}

// compareByDate returns true if record i should come before record j
func compareByDate(i, j *Record, today time.Time) bool {
	iPast := i.IsPast(today)
	jPast := j.IsPast(today)
	if iPast != jPast {
		return !iPast
	}
	return i.Date.Before(j.Date)
}

// DropInvalid returns the records that have a name, a date, and are not stale.
// The input slice is not modified.
func DropInvalid(records []*Record, today time.Time, maxDays int) []*Record {
	kept := make([]*Record, 0, len(records))
	for _, r := range records {
		if r == nil || !r.Valid() {
			continue
		}
		if r.IsStale(today, maxDays) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// FindByID returns the record with the given ID, or nil
func FindByID(records []*Record, id string) *Record {
	for _, r := range records {
		if r.ID == id {
			return r
		}
	}
	return nil
}
