package event

import (
	"sort"
)

// Change describes a field that moved between two loads of the same store's training
type Change struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ChangeType string `json:"change_type"` // "date", "shift", "link"
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// DiffResult contains the results of comparing two collections
type DiffResult struct {
	Added   []*Record
	Removed []*Record
	Changes []*Change
	States  map[string]int // added records per state
}

// HasChanges reports whether anything was added, removed or changed
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changes) > 0
}

// Diff compares the current collection against the previous one by record ID.
//
// A record whose ID disappeared while exactly one new record for the same store appeared
// is reported as a reschedule (Changes) instead of a removal plus an addition.
func Diff(previous, current []*Record) *DiffResult {
	result := &DiffResult{
		Added:   make([]*Record, 0),
		Removed: make([]*Record, 0),
		Changes: make([]*Change, 0),
		States:  make(map[string]int),
	}

	prevByID := make(map[string]*Record, len(previous))
	for _, r := range previous {
		prevByID[r.ID] = r
	}
	currByID := make(map[string]*Record, len(current))
	for _, r := range current {
		currByID[r.ID] = r
	}

	var added, removed []*Record
	for _, r := range current {
		if _, ok := prevByID[r.ID]; !ok {
			added = append(added, r)
		}
	}
	for _, r := range previous {
		if _, ok := currByID[r.ID]; !ok {
			removed = append(removed, r)
		}
	}

	addedByName := groupByName(added)
	removedByName := groupByName(removed)
	moved := make(map[string]bool)
	for name, olds := range removedByName {
		news := addedByName[name]
		if len(olds) != 1 || len(news) != 1 {
			continue
		}
		result.Changes = append(result.Changes, DetectChanges(olds[0], news[0])...)
		moved[olds[0].ID] = true
		moved[news[0].ID] = true
	}

	for _, r := range added {
		if moved[r.ID] {
			continue
		}
		result.Added = append(result.Added, r)
		result.States[r.State]++
	}
	for _, r := range removed {
		if !moved[r.ID] {
			result.Removed = append(result.Removed, r)
		}
	}

	// Sort changes for consistent output
	sort.Slice(result.Changes, func(i, j int) bool {
		if result.Changes[i].Name != result.Changes[j].Name {
			return result.Changes[i].Name < result.Changes[j].Name
		}
		return result.Changes[i].ChangeType < result.Changes[j].ChangeType
	})

	return result
}

func groupByName(records []*Record) map[string][]*Record {
	out := make(map[string][]*Record)
	for _, r := range records {
		out[r.NormalizedName] = append(out[r.NormalizedName], r)
	}
	return out
}

// DetectChanges compares two records of the same store and returns the fields that changed
func DetectChanges(previous, current *Record) []*Change {
	var changes []*Change
	add := func(kind, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, &Change{
			ID:         current.ID,
			Name:       current.Name,
			ChangeType: kind,
			OldValue:   oldValue,
			NewValue:   newValue,
		})
	}

	add("date", FormatDate(previous.Date), FormatDate(current.Date))
	add("shift", previous.Shift, current.Shift)
	add("link", previous.Link, current.Link)
	return changes
}
