package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.Kind != SourceCSV {
		t.Errorf("Source.Kind = %q, want csv", cfg.Source.Kind)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
	}
	if cfg.StaleDays != 4 {
		t.Errorf("StaleDays = %d, want 4", cfg.StaleDays)
	}
	if cfg.Visits.Backend != BackendSQLite {
		t.Errorf("Visits.Backend = %q, want sqlite", cfg.Visits.Backend)
	}
	if cfg.Tracker.Page != "index" {
		t.Errorf("Tracker.Page = %q, want index", cfg.Tracker.Page)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "agenda.yaml")
	content := `
listen: ":9090"
log_level: debug
source:
  kind: file
  path: ./agenda.xlsx
  xlsx_sheet: Treinamentos
  watch: true
cache:
  ttl: 10m
visits:
  backend: dynamodb
  table: visits
  region: sa-east-1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Source.Kind != SourceFile || cfg.Source.Path != "./agenda.xlsx" || !cfg.Source.Watch {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Cache.TTL = %v, want 10m", cfg.Cache.TTL)
	}
	// Unset keys keep their defaults
	if cfg.Cache.Dir != defaultCacheDir {
		t.Errorf("Cache.Dir = %q, want default", cfg.Cache.Dir)
	}
	if cfg.Visits.Backend != BackendDynamo || cfg.Visits.Region != "sa-east-1" {
		t.Errorf("Visits = %+v", cfg.Visits)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("AGENDA_SOURCE", "JSON")
	t.Setenv("AGENDA_JSON_URL", "https://example.com/exec")
	t.Setenv("AGENDA_CACHE_TTL", "5m")
	t.Setenv("AGENDA_STALE_DAYS", "7")
	t.Setenv("AGENDA_TRACKER_URL", "https://agenda.example.com/")
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.Kind != SourceJSON {
		t.Errorf("Source.Kind = %q, want json", cfg.Source.Kind)
	}
	if cfg.Source.JSONURL != "https://example.com/exec" {
		t.Errorf("Source.JSONURL = %q", cfg.Source.JSONURL)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.StaleDays != 7 {
		t.Errorf("StaleDays = %d, want 7", cfg.StaleDays)
	}
	if cfg.Tracker.BaseURL != "https://agenda.example.com" {
		t.Errorf("Tracker.BaseURL = %q, trailing slash should be trimmed", cfg.Tracker.BaseURL)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %q, want :3000", cfg.ListenAddr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENDA_VISITS_BACKEND=memory\nAGENDA_LOG_LEVEL=warn\n"), 0644); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	// Real environment wins over .env
	t.Setenv("AGENDA_LOG_LEVEL", "error")
	// Loaded values land in the process environment; register them for cleanup
	t.Setenv("AGENDA_VISITS_BACKEND", "")
	os.Unsetenv("AGENDA_VISITS_BACKEND")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Visits.Backend != BackendMemory {
		t.Errorf("Visits.Backend = %q, want memory", cfg.Visits.Backend)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		path    string
		wantErr string
	}{
		{name: "missing config file", path: "does-not-exist.yaml", wantErr: "reading config"},
		{name: "bad ttl", env: map[string]string{"AGENDA_CACHE_TTL": "soon"}, wantErr: "AGENDA_CACHE_TTL"},
		{name: "bad stale days", env: map[string]string{"AGENDA_STALE_DAYS": "four"}, wantErr: "AGENDA_STALE_DAYS"},
		{name: "file source without path", env: map[string]string{"AGENDA_SOURCE": "file"}, wantErr: "requires a path"},
		{name: "unknown source", env: map[string]string{"AGENDA_SOURCE": "ftp"}, wantErr: "unknown source kind"},
		{name: "unknown backend", env: map[string]string{"AGENDA_VISITS_BACKEND": "redis"}, wantErr: "unknown visits backend"},
		{name: "bad log level", env: map[string]string{"AGENDA_LOG_LEVEL": "loud"}, wantErr: "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
