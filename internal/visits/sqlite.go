package visits

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

// busyRetryWindow bounds how long a write keeps retrying on a locked database
const busyRetryWindow = 2 * time.Second

// SQLiteStore keeps counters in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the counter database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening visits database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own in-memory database
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating visits database: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Incr adds one to key. Writes that hit a locked database are retried with backoff.
func (s *SQLiteStore) Incr(ctx context.Context, key string) (int64, error) {
	var value int64
	op := func() error {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO counters (key, value, updated_at) VALUES (?, 1, ?)
			ON CONFLICT(key) DO UPDATE SET value = value + 1, updated_at = excluded.updated_at
			RETURNING value`, key, time.Now().UTC()).Scan(&value)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = busyRetryWindow
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return value, nil
}

// Get returns the value of key
func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// List returns the counters under prefix
func (s *SQLiteStore) List(ctx context.Context, prefix string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM counters WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %s*: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
