// Package filter narrows the event collection by store, state and city.
//
// A Selection holds three independent value sets. An empty set places no restriction, and
// non-empty sets intersect: choosing store "Coop" and state "SP" keeps only Coop trainings
// in SP. Values are compared by their normalized form, so "São Paulo", "sao paulo" and
// "SAO-PAULO" select the same records.
//
// The legacy single-select store control is kept as Selection.Legacy. It only applies when
// no store checkbox is chosen, and LegacyAll ("Todas") means no restriction.
//
// Example usage:
//
//	sel := filter.NewSelection()
//	sel.States = []string{"SP"}
//	sel.Cities = []string{"Campinas"}
//	visible := sel.Apply(records)
package filter

import (
	"fmt"
	"strings"

	"github.com/agenda-lojas/agenda/internal/event"
)

// LegacyAll is the legacy select value meaning "every store"
const LegacyAll = "Todas"

// Selection represents the active store/state/city filters
type Selection struct {
	Stores []string `json:"stores,omitempty"`
	States []string `json:"states,omitempty"`
	Cities []string `json:"cities,omitempty"`

	// Legacy is the single-select store value, used only when Stores is empty
	Legacy string `json:"legacy,omitempty"`
}

// NewSelection creates a selection that matches every record
func NewSelection() *Selection {
	return &Selection{
		Stores: []string{},
		States: []string{},
		Cities: []string{},
		Legacy: LegacyAll,
	}
}

// IsEmpty reports whether the selection places no restriction
func (s *Selection) IsEmpty() bool {
	return s == nil || (len(s.Stores) == 0 && len(s.States) == 0 && len(s.Cities) == 0 && !s.legacyActive())
}

func (s *Selection) legacyActive() bool {
	v := strings.TrimSpace(s.Legacy)
	return v != "" && v != LegacyAll
}

// Clear resets every group to "no restriction"
func (s *Selection) Clear() {
	s.Stores = []string{}
	s.States = []string{}
	s.Cities = []string{}
	s.Legacy = LegacyAll
}

// matcher holds the normalized value sets of a Selection
type matcher struct {
	stores map[string]bool
	legacy string
	states map[string]bool
	cities map[string]bool
}

func (s *Selection) compile() matcher {
	m := matcher{
		stores: keySet(s.Stores),
		states: keySet(s.States),
		cities: keySet(s.Cities),
	}
	if len(m.stores) == 0 && s.legacyActive() {
		m.legacy = event.NormalizeKey(s.Legacy)
	}
	return m
}

func (m matcher) matches(r *event.Record) bool {
	name := r.NormalizedName
	if name == "" {
		name = event.NormalizeKey(r.Name)
	}

	if len(m.stores) > 0 {
		if !m.stores[name] {
			return false
		}
	} else if m.legacy != "" && name != m.legacy {
		return false
	}

	if len(m.states) > 0 && !m.states[event.NormalizeKey(r.State)] {
		return false
	}

	if len(m.cities) > 0 && !m.cities[event.NormalizeKey(r.City)] {
		return false
	}

	return true
}

// Matches reports whether a record passes every active group
func (s *Selection) Matches(r *event.Record) bool {
	if s.IsEmpty() {
		return true
	}
	return s.compile().matches(r)
}

// Apply returns the records that match, keeping their order.
// The result is a new slice even when the selection is empty.
func (s *Selection) Apply(records []*event.Record) []*event.Record {
	filtered := make([]*event.Record, 0, len(records))
	if s.IsEmpty() {
		return append(filtered, records...)
	}

	m := s.compile()
	for _, r := range records {
		if m.matches(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// String returns a human-readable description of the active groups.
// Format: "Lojas: Coop, Delta | Estados: SP"
func (s *Selection) String() string {
	if s.IsEmpty() {
		return "Sem filtros"
	}

	var parts []string
	if len(s.Stores) > 0 {
		parts = append(parts, fmt.Sprintf("Lojas: %s", strings.Join(s.Stores, ", ")))
	} else if s.legacyActive() {
		parts = append(parts, fmt.Sprintf("Loja: %s", s.Legacy))
	}
	if len(s.States) > 0 {
		parts = append(parts, fmt.Sprintf("Estados: %s", strings.Join(s.States, ", ")))
	}
	if len(s.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cidades: %s", strings.Join(s.Cities, ", ")))
	}
	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the selection
func (s *Selection) Clone() *Selection {
	if s == nil {
		return NewSelection()
	}
	return &Selection{
		Stores: append([]string{}, s.Stores...),
		States: append([]string{}, s.States...),
		Cities: append([]string{}, s.Cities...),
		Legacy: s.Legacy,
	}
}

func keySet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if k := event.NormalizeKey(v); k != "" {
			set[k] = true
		}
	}
	return set
}
