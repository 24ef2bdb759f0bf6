package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/agenda-lojas/agenda/internal/calendar"
	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/locate"
	"github.com/agenda-lojas/agenda/internal/render"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseFormat validates a --format value. ics is only offered by commands that list events.
func ParseFormat(s string, allowICS bool) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON:
		return f, nil
	case FormatICS:
		if allowICS {
			return f, nil
		}
	}
	if allowICS {
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", s)
	}
	return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
}

// LocateSummary describes the outcome of the locate command
type LocateSummary struct {
	State     locate.State  `json:"state"`
	Source    locate.Source `json:"source,omitempty"`
	Message   string        `json:"message"`
	Nearest   string        `json:"nearest,omitempty"`
	NearestKm *float64      `json:"nearest_km,omitempty"`
}

// OutputResult contains data to be output
type OutputResult struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Filters     string         `json:"filters"`
	Located     bool           `json:"located"`
	Cards       []render.Card  `json:"cards"`
	Count       int            `json:"count"`
	Total       int            `json:"total"`
	Message     string         `json:"message,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	FromCache   bool           `json:"from_cache"`
	Locate      *LocateSummary `json:"locate,omitempty"`

	// Records are the visible records, used by the ics format
	Records []*event.Record `json:"-"`
}

// newOutputResult collects a render and the session state around it
func newOutputResult(res render.Result, sel *filter.Selection, visible []*event.Record, total int, feedback string, fromCache bool) *OutputResult {
	return &OutputResult{
		GeneratedAt: now().UTC(),
		Filters:     sel.String(),
		Located:     res.Located,
		Cards:       res.Cards,
		Count:       len(res.Cards),
		Total:       total,
		Message:     res.Message,
		Feedback:    feedback,
		FromCache:   fromCache,
		Records:     visible,
	}
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateBulkICS(result.Records, ""))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Feedback != "" {
		fmt.Fprintf(w, "⚠️  %s\n\n", result.Feedback)
	}
	if result.Locate != nil {
		fmt.Fprintf(w, "%s\n\n", result.Locate.Message)
	}

	if result.Count == 0 {
		if result.Message != "" {
			fmt.Fprintln(w, result.Message)
		} else {
			fmt.Fprintln(w, render.NoResultsMessage)
		}
		return nil
	}

	if verbose {
		fmt.Fprintf(w, "Filtros: %s\n\n", result.Filters)
	}

	for i, c := range result.Cards {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, render.FormatCard(c))
		if verbose {
			fmt.Fprintf(w, "   ID: %s\n", c.ID)
			fmt.Fprintf(w, "   Imagem: %s\n", c.Image)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d de %d treinamentos\n", result.Count, result.Total)
	if verbose && result.FromCache {
		fmt.Fprintln(w, "(dados do cache)")
	}
	return nil
}

// writePanel outputs the filter options
func writePanel(w io.Writer, panel filter.Panel, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, panel)
	}

	if panel.IsEmpty() {
		fmt.Fprintln(w, "Nenhum filtro disponível.")
		return nil
	}

	groups := []struct {
		title   string
		options []filter.Option
	}{
		{"Lojas", panel.Stores},
		{"Estados", panel.States},
		{"Cidades", panel.Cities},
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d):\n", g.title, len(g.options))
		for _, o := range g.options {
			fmt.Fprintf(w, "  %s\n", o.Label)
		}
	}
	return nil
}
