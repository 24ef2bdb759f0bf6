package sheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	PublishedCSVURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vQBDKbeXYi4xycW9bnnOoXLByemROrrE9-wW0gMS-yuKMl67PrYRN78Jy239cDsslh6iP8tgj_rV9nZ/pub?output=csv"
	UserAgent       = "agenda-lojas/1.0 (github.com/agenda-lojas/agenda)"
	Timeout         = 30 * time.Second

	// maxBodySize caps how much of a response is read
	maxBodySize = 16 << 20
)

// Source produces the raw rows of the training spreadsheet
type Source interface {
	Fetch(ctx context.Context) ([]Row, error)
	Name() string
}

// StatusError is returned when the spreadsheet endpoint answers with a non-success status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// HTMLPayloadError is returned when the CSV endpoint serves an HTML page instead of CSV,
// which usually means the spreadsheet is not published publicly
type HTMLPayloadError struct {
	URL   string
	Title string
}

func (e *HTMLPayloadError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("csv endpoint returned HTML (%q); spreadsheet is probably not published", e.Title)
	}
	return "csv endpoint returned HTML; spreadsheet is probably not published"
}

var (
	doctypePattern = regexp.MustCompile(`(?i)^\s*<!doctype html`)
	htmlTagPattern = regexp.MustCompile(`(?i)<html[\s>]`)
)

// LooksLikeHTML reports whether body is an HTML document rather than CSV
func LooksLikeHTML(body []byte) bool {
	return doctypePattern.Match(body) || htmlTagPattern.Match(body)
}

// HTTPSource fetches the published CSV export of the spreadsheet
type HTTPSource struct {
	client *http.Client
	url    string
}

// NewHTTPSource creates a source for url; an empty url selects the published spreadsheet
func NewHTTPSource(url string) *HTTPSource {
	if url == "" {
		url = PublishedCSVURL
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout: Timeout,
		},
		url: url,
	}
}

// Name identifies the source in logs
func (s *HTTPSource) Name() string {
	return "csv"
}

// Fetch downloads and parses the CSV. A single attempt is made.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	if LooksLikeHTML(body) {
		return nil, &HTMLPayloadError{URL: s.url, Title: pageTitle(body)}
	}

	return ParseCSV(string(body)), nil
}

// pageTitle extracts the <title> of an HTML error page, if any
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
