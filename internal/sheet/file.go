package sheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FileSource reads a local export of the spreadsheet (.csv, .xlsx or .json)
type FileSource struct {
	path      string
	sheetName string
}

// NewFileSource creates a file source. sheetName selects the worksheet of an .xlsx file;
// empty means the first sheet.
func NewFileSource(path, sheetName string) *FileSource {
	return &FileSource{path: path, sheetName: sheetName}
}

// Name identifies the source in logs
func (s *FileSource) Name() string {
	return "file"
}

// Path returns the file being read
func (s *FileSource) Path() string {
	return s.path
}

// Fetch reads and parses the file
func (s *FileSource) Fetch(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".xlsx", ".xlsm":
		table, err := ReadXLSX(bytes.NewReader(data), s.sheetName)
		if err != nil {
			return nil, err
		}
		return RowsFromTable(table), nil
	case ".json":
		return DecodeJSONRows(data)
	default:
		if LooksLikeHTML(data) {
			return nil, &HTMLPayloadError{URL: s.path, Title: pageTitle(data)}
		}
		return ParseCSV(string(data)), nil
	}
}

// ReadXLSX returns the cell text of one worksheet. An empty sheetName selects the first sheet.
func ReadXLSX(r io.Reader, sheetName string) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	if sheetName == "" {
		sheetName = file.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %q: %w", sheetName, err)
	}
	return rows, nil
}
