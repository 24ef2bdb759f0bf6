package sheet

import (
	"strings"
)

// ParseCSV parses published spreadsheet text into rows. The first line is the header.
//
// Quoted fields may hold commas and line breaks, and a doubled quote inside quotes is a
// literal quote. CRLF and LF both end a record, and a final record without a terminator
// is kept. A leading byte order mark is dropped. The scanner never fails: unbalanced quotes
// just run to the end of the input.
func ParseCSV(text string) []Row {
	return RowsFromTable(scanCSV(strings.TrimPrefix(text, "\uFEFF")))
}

// scanCSV splits text into records of raw (untrimmed) cells
func scanCSV(text string) [][]string {
	var (
		records  [][]string
		record   []string
		cur      strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			record = append(record, cur.String())
			cur.Reset()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			record = append(record, cur.String())
			records = append(records, record)
			record = nil
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}

	if cur.Len() > 0 || len(record) > 0 {
		record = append(record, cur.String())
		records = append(records, record)
	}

	return records
}
