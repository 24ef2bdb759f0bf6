// Package visits counts page views.
//
// Two key families are kept apart, as the pages that call them expect: the "registrar"
// endpoint counts under "visitas:<page>" and the "track" endpoint under "visits:<page>".
// Counters live in a Store; SQLite is the default backend, DynamoDB is available for
// deployments without a local disk, and an in-memory store serves tests and dry runs.
package visits

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Key prefixes
const (
	RegistrarPrefix = "visitas:"
	TrackPrefix     = "visits:"
)

// DefaultPage is counted when the registrar endpoint gets no page
const DefaultPage = "index"

// SummaryPages are the pages reported by the visitas endpoint
var SummaryPages = []string{"index", "k", "acc"}

// Store is a set of named counters
type Store interface {
	// Incr adds one to key, creating it at zero, and returns the new value
	Incr(ctx context.Context, key string) (int64, error)
	// Get returns the value of key, or 0 when it does not exist
	Get(ctx context.Context, key string) (int64, error)
	// List returns every counter whose key starts with prefix, keyed by full key
	List(ctx context.Context, prefix string) (map[string]int64, error)
	Close() error
}

// MemoryStore keeps counters in memory
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

// Incr adds one to key
func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

// Get returns the value of key
func (m *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

// List returns the counters under prefix
func (m *MemoryStore) List(_ context.Context, prefix string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for k, v := range m.counters {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

// Pages strips prefix from the keys of counters
func Pages(counters map[string]int64, prefix string) map[string]int64 {
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out
}

// SortedPages returns the page names of counters in alphabetical order
func SortedPages(counters map[string]int64) []string {
	pages := make([]string, 0, len(counters))
	for p := range counters {
		pages = append(pages, p)
	}
	sort.Strings(pages)
	return pages
}
