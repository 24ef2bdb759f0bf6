package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/dghubble/sling"
)

// AppsScriptURL is the Apps Script endpoint that serves the spreadsheet as JSON
const AppsScriptURL = "https://script.google.com/macros/s/AKfycbxIchf_yVY28y0TQxA0tc6ygi4Axcmcsg2CoW-aTMypersUjvH5u4Kp0I62Y7T5DpEg/exec"

// JSONSource reads the spreadsheet from a JSON endpoint.
//
// Accepted payloads: an array of arrays whose first entry is the header, an array of objects
// keyed by header, or either of those wrapped as {"data": [...]}. Object rows have no
// positional cells.
type JSONSource struct {
	sling *sling.Sling
}

// NewJSONSource creates a source for url; an empty url selects the Apps Script endpoint
func NewJSONSource(url string) *JSONSource {
	if url == "" {
		url = AppsScriptURL
	}
	client := &http.Client{Timeout: Timeout}
	return &JSONSource{
		sling: sling.New().Client(client).Base(url).Set("User-Agent", UserAgent).ResponseDecoder(rawDecoder{}),
	}
}

// rawDecoder hands the body to Fetch undecoded, so an HTML error page can be told apart
// from a malformed payload
type rawDecoder struct{}

func (rawDecoder) Decode(resp *http.Response, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading json: %w", err)
	}
	*(v.(*[]byte)) = body
	return nil
}

// Name identifies the source in logs
func (s *JSONSource) Name() string {
	return "json"
}

// Fetch downloads and decodes the JSON payload
func (s *JSONSource) Fetch(ctx context.Context) ([]Row, error) {
	req, err := s.sling.New().Get("").Request()
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var body []byte
	resp, err := s.sling.Do(req.WithContext(ctx), &body, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching json: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	if LooksLikeHTML(body) {
		return nil, &HTMLPayloadError{URL: req.URL.String(), Title: pageTitle(body)}
	}
	return DecodeJSONRows(body)
}

// DecodeJSONRows converts a JSON spreadsheet payload into rows
func DecodeJSONRows(data []byte) ([]Row, error) {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		if len(wrapped.Data) == 0 {
			return nil, fmt.Errorf("decoding json: object payload without data")
		}
		data = wrapped.Data
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if len(items) == 0 {
		return []Row{}, nil
	}

	if first := strings.TrimSpace(string(items[0])); strings.HasPrefix(first, "[") {
		table := make([][]string, 0, len(items))
		for i, item := range items {
			var values []interface{}
			if err := json.Unmarshal(item, &values); err != nil {
				return nil, fmt.Errorf("decoding row %d: %w", i, err)
			}
			cells := make([]string, len(values))
			for j, v := range values {
				cells[j] = jsonText(v)
			}
			table = append(table, cells)
		}
		return RowsFromTable(table), nil
	}

	rows := make([]Row, 0, len(items))
	for i, item := range items {
		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("decoding row %d: %w", i, err)
		}
		row := Row{Fields: make(map[string]string, len(obj))}
		for k, v := range obj {
			h := strings.TrimSpace(k)
			row.Fields[h] = strings.TrimSpace(jsonText(v))
			row.Headers = append(row.Headers, h)
		}
		sort.Strings(row.Headers)
		rows = append(rows, row)
	}
	return rows, nil
}

func jsonText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
