package loader

import (
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/sheet"
)

// Header aliases, tried in order before the positional fallback
var (
	NameAliases      = []string{"Nome da Loja", "Loja", "Nome", "nome", "Loja Nome"}
	DateAliases      = []string{"Dia do treinamento", "Dia", "Data", "Data do treinamento"}
	ShiftAliases     = []string{"Turno", "turno"}
	LinkAliases      = []string{"Link SquareSpace", "Link"}
	ImageFlagAliases = []string{"Imagem Preenchida corretamente?", "Imagem"}
)

// Fixed spreadsheet positions
const (
	NameColumn      = 0
	DateColumn      = 1
	ShiftColumn     = 2
	LinkColumn      = 3
	ImageFlagColumn = 5
	StateColumn     = 9
	CityColumn      = 10
)

// field returns the first non-empty aliased value, else the positional cell
func field(row sheet.Row, column int, aliases ...[]string) string {
	for _, a := range aliases {
		if v, ok := row.First(a...); ok {
			return v
		}
	}
	return row.Cell(column)
}

// MapRow converts a spreadsheet row into a record. State and city always come from their
// fixed columns. The record may be invalid (no name or no date); Normalize drops those.
func MapRow(row sheet.Row, now time.Time) *event.Record {
	name := field(row, NameColumn, NameAliases, []string{"A"})
	rawDate := field(row, DateColumn, DateAliases)
	shift := field(row, ShiftColumn, ShiftAliases)
	link := field(row, LinkColumn, LinkAliases)
	imageFlag := field(row, ImageFlagColumn, ImageFlagAliases)

	date, _ := event.ParseDate(rawDate, now)
	lat, lng := sheet.ExtractCoordinates(row)

	return event.NewRecord(name, shift, link, imageFlag, date, lat, lng, row.Cell(StateColumn), row.Cell(CityColumn))
}

// Normalize maps rows to records, drops records without a name or date and those more
// than staleDays before today, and sorts the rest with event.SortByDate.
func Normalize(rows []sheet.Row, now time.Time, staleDays int) []*event.Record {
	records := make([]*event.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, MapRow(row, now))
	}

	today := event.Today(now)
	kept := event.DropInvalid(records, today, staleDays)
	event.SortByDate(kept, today)
	return kept
}
