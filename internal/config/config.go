// Package config loads agenda settings.
//
// Precedence, lowest first: built-in defaults, an optional YAML file, a .env file in the
// working directory, then AGENDA_* environment variables. Command-line flags are applied
// last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/agenda-lojas/agenda/internal/logger"
)

// Source kinds
const (
	SourceCSV  = "csv"
	SourceJSON = "json"
	SourceFile = "file"
)

// Visit counter backends
const (
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamodb"
	BackendMemory = "memory"
)

const (
	defaultListen      = ":8080"
	defaultCacheDir    = "~/.cache/agenda"
	defaultCacheTTL    = 30 * time.Minute
	defaultStaleDays   = 4
	defaultIPLookupURL = "https://ipapi.co"
	defaultVisitsDB    = "~/.local/share/agenda/visits.db"
	defaultVisitsTable = "agenda-visits"
	defaultTrackerPage = "index"
)

// Config holds all agenda settings
type Config struct {
	ListenAddr string        `yaml:"listen"`
	LogLevel   string        `yaml:"log_level"`
	Source     SourceConfig  `yaml:"source"`
	Cache      CacheConfig   `yaml:"cache"`
	StaleDays  int           `yaml:"stale_days"`
	Locate     LocateConfig  `yaml:"locate"`
	Visits     VisitsConfig  `yaml:"visits"`
	Tracker    TrackerConfig `yaml:"tracker"`
}

// SourceConfig selects where the spreadsheet comes from
type SourceConfig struct {
	Kind      string `yaml:"kind"`       // csv, json or file
	URL       string `yaml:"url"`        // published CSV export
	JSONURL   string `yaml:"json_url"`   // Apps Script endpoint
	Path      string `yaml:"path"`       // local .csv/.xlsx/.json
	XLSXSheet string `yaml:"xlsx_sheet"` // worksheet name, first sheet when empty
	Watch     bool   `yaml:"watch"`      // reload a file source when it changes
}

// CacheConfig configures the event collection cache
type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// LocateConfig configures the IP geolocation fallback
type LocateConfig struct {
	IPLookupURL string `yaml:"ip_lookup_url"`
}

// VisitsConfig configures the page-view counter store
type VisitsConfig struct {
	Backend  string `yaml:"backend"` // sqlite, dynamodb or memory
	DBPath   string `yaml:"db_path"`
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // DynamoDB endpoint override (local testing)
}

// TrackerConfig configures the fire-and-forget page-view ping sent by the CLI
type TrackerConfig struct {
	BaseURL string `yaml:"base_url"`
	Page    string `yaml:"page"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ListenAddr: defaultListen,
		LogLevel:   "info",
		Source:     SourceConfig{Kind: SourceCSV},
		Cache:      CacheConfig{Dir: defaultCacheDir, TTL: defaultCacheTTL},
		StaleDays:  defaultStaleDays,
		Locate:     LocateConfig{IPLookupURL: defaultIPLookupURL},
		Visits:     VisitsConfig{Backend: BackendSQLite, DBPath: defaultVisitsDB, Table: defaultVisitsTable},
		Tracker:    TrackerConfig{Page: defaultTrackerPage},
	}
}

// Load builds the configuration. path names an optional YAML file; an explicit path that
// does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Ignoring unreadable .env file", logger.Fields{"error": err.Error()})
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = firstNonEmpty(os.Getenv("AGENDA_LISTEN"), portAddr(os.Getenv("PORT")), cfg.ListenAddr)
	cfg.LogLevel = firstNonEmpty(os.Getenv("AGENDA_LOG_LEVEL"), cfg.LogLevel)

	cfg.Source.Kind = firstNonEmpty(strings.ToLower(os.Getenv("AGENDA_SOURCE")), cfg.Source.Kind)
	cfg.Source.URL = firstNonEmpty(os.Getenv("AGENDA_SOURCE_URL"), cfg.Source.URL)
	cfg.Source.JSONURL = firstNonEmpty(os.Getenv("AGENDA_JSON_URL"), cfg.Source.JSONURL)
	cfg.Source.Path = firstNonEmpty(os.Getenv("AGENDA_SOURCE_PATH"), cfg.Source.Path)
	cfg.Source.XLSXSheet = firstNonEmpty(os.Getenv("AGENDA_XLSX_SHEET"), cfg.Source.XLSXSheet)
	if v := strings.TrimSpace(os.Getenv("AGENDA_WATCH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AGENDA_WATCH: %w", err)
		}
		cfg.Source.Watch = b
	}

	cfg.Cache.Dir = firstNonEmpty(os.Getenv("AGENDA_CACHE_DIR"), cfg.Cache.Dir)
	if v := strings.TrimSpace(os.Getenv("AGENDA_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AGENDA_CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = d
	}

	if v := strings.TrimSpace(os.Getenv("AGENDA_STALE_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGENDA_STALE_DAYS: %w", err)
		}
		cfg.StaleDays = n
	}

	cfg.Locate.IPLookupURL = firstNonEmpty(os.Getenv("AGENDA_IP_LOOKUP_URL"), cfg.Locate.IPLookupURL)

	cfg.Visits.Backend = firstNonEmpty(strings.ToLower(os.Getenv("AGENDA_VISITS_BACKEND")), cfg.Visits.Backend)
	cfg.Visits.DBPath = firstNonEmpty(os.Getenv("AGENDA_VISITS_DB"), cfg.Visits.DBPath)
	cfg.Visits.Table = firstNonEmpty(os.Getenv("AGENDA_VISITS_TABLE"), cfg.Visits.Table)
	cfg.Visits.Region = firstNonEmpty(os.Getenv("AGENDA_AWS_REGION"), os.Getenv("AWS_REGION"), cfg.Visits.Region)
	cfg.Visits.Endpoint = firstNonEmpty(os.Getenv("AGENDA_DYNAMO_ENDPOINT"), cfg.Visits.Endpoint)

	cfg.Tracker.BaseURL = strings.TrimRight(firstNonEmpty(os.Getenv("AGENDA_TRACKER_URL"), cfg.Tracker.BaseURL), "/")
	cfg.Tracker.Page = firstNonEmpty(os.Getenv("AGENDA_TRACKER_PAGE"), cfg.Tracker.Page)

	return nil
}

// Validate checks values that would otherwise fail later at a less obvious place
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceCSV, SourceJSON:
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source kind %q requires a path", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	switch c.Visits.Backend {
	case BackendSQLite:
		if c.Visits.DBPath == "" {
			return fmt.Errorf("visits backend %q requires db_path", c.Visits.Backend)
		}
	case BackendDynamo:
		if c.Visits.Table == "" {
			return fmt.Errorf("visits backend %q requires a table", c.Visits.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown visits backend %q", c.Visits.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.StaleDays < 0 {
		return fmt.Errorf("stale_days must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func portAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ""
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
