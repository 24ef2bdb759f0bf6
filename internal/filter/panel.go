package filter

import (
	"regexp"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/agenda-lojas/agenda/internal/event"
)

// Option is one toggle of the filter panel
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	ID    string `json:"id"` // stable element id, e.g. chk_estado_sp
}

// Panel lists the choices of each filter group
type Panel struct {
	Stores []Option `json:"stores"`
	States []Option `json:"states"`
	Cities []Option `json:"cities"`
}

// IsEmpty reports whether the panel has no options at all
func (p Panel) IsEmpty() bool {
	return len(p.Stores) == 0 && len(p.States) == 0 && len(p.Cities) == 0
}

var nonWord = regexp.MustCompile(`\W`)

// BuildPanel derives the de-duplicated option lists from the collection.
// Options are sorted with Brazilian Portuguese collation; empty states and cities are skipped.
// An empty collection yields an empty panel.
func BuildPanel(records []*event.Record) Panel {
	var names, states, cities []string
	for _, r := range records {
		names = append(names, r.Name)
		states = append(states, r.State)
		cities = append(cities, r.City)
	}

	return Panel{
		Stores: options("chk_loja_", names),
		States: options("chk_estado_", states),
		Cities: options("chk_cidade_", cities),
	}
}

func options(idPrefix string, values []string) []Option {
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}

	// Collators carry buffers, so each call gets its own
	collate.New(language.BrazilianPortuguese).SortStrings(unique)

	out := make([]Option, len(unique))
	for i, v := range unique {
		out[i] = Option{
			Value: v,
			Label: v,
			ID:    idPrefix + nonWord.ReplaceAllString(event.NormalizeKey(v), "_"),
		}
	}
	return out
}
