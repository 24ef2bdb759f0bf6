package sheet

import (
	"sort"
	"strings"
)

// Row is one parsed spreadsheet line
type Row struct {
	Fields  map[string]string `json:"fields"`  // trimmed header -> trimmed value
	Headers []string          `json:"headers"` // header order
	Cells   []string          `json:"cells"`   // trimmed cells by position, independent of headers
}

// NewRow builds a Row from a header line and one record's cells.
// Missing trailing cells map to "".
func NewRow(headers, cells []string) Row {
	row := Row{
		Fields:  make(map[string]string, len(headers)),
		Headers: headers,
		Cells:   make([]string, len(cells)),
	}
	for i, c := range cells {
		row.Cells[i] = strings.TrimSpace(c)
	}
	for i, h := range headers {
		row.Fields[h] = row.Cell(i)
	}
	return row
}

// RowsFromTable converts a table whose first line is the header into rows.
// Header cells are trimmed; blank lines are skipped.
func RowsFromTable(table [][]string) []Row {
	if len(table) == 0 {
		return []Row{}
	}
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		if blank(cells) {
			continue
		}
		rows = append(rows, NewRow(headers, cells))
	}
	return rows
}

// Lookup returns the value of the first alias that names a header.
// Matching ignores case and surrounding whitespace. An empty value still counts as found.
func (r Row) Lookup(aliases ...string) (string, bool) {
	if len(r.Fields) == 0 {
		return "", false
	}
	keys := make(map[string]string, len(r.Fields))
	for _, h := range r.headerKeys() {
		keys[strings.ToLower(strings.TrimSpace(h))] = h
	}
	for _, alias := range aliases {
		if h, ok := keys[strings.ToLower(strings.TrimSpace(alias))]; ok {
			return r.Fields[h], true
		}
	}
	return "", false
}

// First is Lookup that treats empty values as absent
func (r Row) First(aliases ...string) (string, bool) {
	v, ok := r.Lookup(aliases...)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Cell returns the positional cell at i, or "" when the row is shorter
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Values returns the field values in header order
func (r Row) Values() []string {
	keys := r.headerKeys()
	out := make([]string, 0, len(keys))
	for _, h := range keys {
		out = append(out, r.Fields[h])
	}
	return out
}

// headerKeys lists field names in header order; later duplicates win, as in Fields
func (r Row) headerKeys() []string {
	if len(r.Headers) > 0 {
		return r.Headers
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
