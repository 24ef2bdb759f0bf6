package filter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/agenda-lojas/agenda/internal/event"
)

// listSeparator splits "SP, RJ; MG" style input
var listSeparator = regexp.MustCompile(`\s*[,;]\s*`)

// ParseList splits a comma or semicolon separated list of filter values.
//
// Blank entries are dropped and values that normalize to the same key are kept once,
// preserving the first spelling:
//
//	ParseList("São Paulo, sao paulo; Campinas") // ["São Paulo", "Campinas"]
func ParseList(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return []string{}
	}
	return dedupe(listSeparator.Split(input, -1))
}

// Query parameter names understood by FromQuery
const (
	ParamStore  = "loja"
	ParamState  = "estado"
	ParamCity   = "cidade"
	ParamLegacy = "filtroLoja"
)

// FromQuery builds a Selection from URL query parameters.
//
// Each group accepts repeated parameters, comma separated lists or both:
//
//	?estado=SP&estado=RJ
//	?estado=SP,RJ&cidade=Campinas
func FromQuery(q url.Values) *Selection {
	sel := NewSelection()
	sel.Stores = queryList(q, ParamStore)
	sel.States = queryList(q, ParamState)
	sel.Cities = queryList(q, ParamCity)
	if v := strings.TrimSpace(q.Get(ParamLegacy)); v != "" {
		sel.Legacy = v
	}
	return sel
}

// Query encodes the selection back into URL query parameters
func (s *Selection) Query() url.Values {
	q := url.Values{}
	if s == nil {
		return q
	}
	for _, v := range s.Stores {
		q.Add(ParamStore, v)
	}
	for _, v := range s.States {
		q.Add(ParamState, v)
	}
	for _, v := range s.Cities {
		q.Add(ParamCity, v)
	}
	if s.legacyActive() {
		q.Set(ParamLegacy, s.Legacy)
	}
	return q
}

func queryList(q url.Values, key string) []string {
	var values []string
	for _, raw := range q[key] {
		values = append(values, listSeparator.Split(strings.TrimSpace(raw), -1)...)
	}
	return dedupe(values)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		k := event.NormalizeKey(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
