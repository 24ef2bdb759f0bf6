package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
)

const (
	// DataKey names the serialized event collection
	DataKey = "agenda_allData_v1"
	// TimeKey names the capture time, in epoch milliseconds
	TimeKey = "agenda_allData_time_v1"

	DefaultTTL = 30 * time.Minute
)

var (
	// ErrCacheMiss means there is no fresh, non-empty cache entry
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheCorrupt means the cache entry could not be decoded
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// Storage is a file-backed cache of the event collection.
// Each key is stored as one file in the data directory.
type Storage struct {
	dataDir string
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Storage in dataDir. A ttl <= 0 selects DefaultTTL.
func New(dataDir string, ttl time.Duration) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Storage{
		dataDir: dataDir,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Dir returns the data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// TTL returns the freshness window
func (s *Storage) TTL() time.Duration {
	return s.ttl
}

func (s *Storage) path(key string) string {
	return filepath.Join(s.dataDir, key)
}

// Load returns the cached collection and its capture time.
//
// It returns ErrCacheMiss when either key is absent, the entry is older than the TTL, or the
// collection is empty, and an error wrapping ErrCacheCorrupt when the entry cannot be decoded.
// A corrupt entry is left in place; callers decide whether to Clear it.
func (s *Storage) Load() ([]*event.Record, time.Time, error) {
	rawTime, err := os.ReadFile(s.path(TimeKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, ErrCacheMiss
		}
		return nil, time.Time{}, fmt.Errorf("reading cache time: %w", err)
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(string(rawTime)), 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: parsing cache time: %v", ErrCacheCorrupt, err)
	}
	capturedAt := time.UnixMilli(ms)
	if s.now().Sub(capturedAt) >= s.ttl {
		return nil, capturedAt, ErrCacheMiss
	}

	data, err := os.ReadFile(s.path(DataKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, capturedAt, ErrCacheMiss
		}
		return nil, capturedAt, fmt.Errorf("reading cache: %w", err)
	}

	var records []*event.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, capturedAt, fmt.Errorf("%w: parsing cache: %v", ErrCacheCorrupt, err)
	}
	if len(records) == 0 {
		return nil, capturedAt, ErrCacheMiss
	}

	return records, capturedAt, nil
}

// Save writes the collection and the current time
func (s *Storage) Save(records []*event.Record) error {
	if records == nil {
		records = []*event.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := os.WriteFile(s.path(DataKey), data, 0644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := os.WriteFile(s.path(TimeKey), []byte(stamp), 0644); err != nil {
		return fmt.Errorf("writing cache time: %w", err)
	}

	return nil
}

// Clear removes both cache entries. Missing entries are not an error.
func (s *Storage) Clear() error {
	for _, key := range []string{DataKey, TimeKey} {
		if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", key, err)
		}
	}
	return nil
}
