package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agenda-lojas/agenda/internal/agenda"
	"github.com/agenda-lojas/agenda/internal/locate"
	"github.com/agenda-lojas/agenda/internal/render"
	"github.com/agenda-lojas/agenda/internal/visits"
)

var fixedNow = time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

// cliEnv serves the fixture and isolates the working directory and clock
type cliEnv struct {
	hits     *int32
	sheetURL string
	cacheDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/agenda.csv")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	env := &cliEnv{hits: new(int32), cacheDir: filepath.Join(t.TempDir(), "cache")}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(env.hits, 1)
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	env.sheetURL = srv.URL

	t.Chdir(t.TempDir())
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = time.Now })
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	base := []string{"--source-url", e.sheetURL, "--cache-dir", e.cacheDir, "--log-level", "error"}
	return runCLI(t, append(args, base...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestList_Text(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}

	order := []string{"Sam's Club Campinas", "Atacadão Morumbi", "Carrefour Copacabana (realizado)"}
	last := -1
	for _, name := range order {
		i := strings.Index(out, name)
		if i < 0 {
			t.Fatalf("output missing %q:\n%s", name, out)
		}
		if i < last {
			t.Errorf("%q out of order:\n%s", name, out)
		}
		last = i
	}
	if !strings.Contains(out, "Total: 3 de 3 treinamentos") {
		t.Errorf("output missing total:\n%s", out)
	}
	if strings.Contains(out, "Assaí") {
		t.Error("stale training should be dropped")
	}
}

func TestList_JSON(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		filters string
		located bool
	}{
		{
			name:    "state filter",
			args:    []string{"--estado", "SP"},
			want:    []string{"Sam's Club Campinas", "Atacadão Morumbi"},
			filters: "Estados: SP",
		},
		{
			name:    "store list",
			args:    []string{"--loja", "carrefour copacabana; Atacadao Morumbi"},
			want:    []string{"Atacadão Morumbi", "Carrefour Copacabana"},
			filters: "Lojas: carrefour copacabana, Atacadao Morumbi",
		},
		{
			name:    "legacy single store",
			args:    []string{"--filtro-loja", "Atacadão Morumbi"},
			want:    []string{"Atacadão Morumbi"},
			filters: "Loja: Atacadão Morumbi",
		},
		{
			name:    "position",
			args:    []string{"--lat", "-23,62", "--lng", "-46.70"},
			want:    []string{"Atacadão Morumbi", "Sam's Club Campinas", "Carrefour Copacabana"},
			filters: "Sem filtros",
			located: true,
		},
		{
			name:    "sort by name",
			args:    []string{"--sort", "name"},
			want:    []string{"Atacadão Morumbi", "Carrefour Copacabana", "Sam's Club Campinas"},
			filters: "Sem filtros",
		},
		{
			name:    "sort by city",
			args:    []string{"--sort", "city"},
			want:    []string{"Carrefour Copacabana", "Sam's Club Campinas", "Atacadão Morumbi"},
			filters: "Sem filtros",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			out, _, err := env.run(t, append([]string{"list", "--format", "json"}, tt.args...)...)
			if err != nil {
				t.Fatalf("list error: %v", err)
			}

			var result OutputResult
			if err := json.Unmarshal([]byte(out), &result); err != nil {
				t.Fatalf("decoding %q: %v", out, err)
			}
			var got []string
			for _, c := range result.Cards {
				got = append(got, c.Name)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("cards = %v, want %v", got, tt.want)
			}
			if result.Count != len(tt.want) || result.Total != 3 {
				t.Errorf("count/total = %d/%d", result.Count, result.Total)
			}
			if result.Filters != tt.filters {
				t.Errorf("filters = %q, want %q", result.Filters, tt.filters)
			}
			if result.Located != tt.located {
				t.Errorf("located = %v, want %v", result.Located, tt.located)
			}
		})
	}
}

func TestList_NoResults(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "list", "--cidade", "Osasco")
	if !errors.Is(err, errNoResults) {
		t.Fatalf("error = %v, want errNoResults", err)
	}
	if !strings.Contains(out, render.NoResultsMessage) {
		t.Errorf("output = %q", out)
	}
}

func TestList_ICS(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "list", "--format", "ics", "--estado", "RJ")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n") {
		t.Errorf("output is not a calendar:\n%s", out)
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("VEVENT count = %d, want 1", n)
	}
}

func TestList_InvalidFlags(t *testing.T) {
	env := newCLIEnv(t)
	tests := [][]string{
		{"list", "--format", "xml"},
		{"list", "--sort", "price"},
		{"list", "--lat", "-23.5"},
		{"list", "--lat", "x", "--lng", "1"},
		{"filters", "--format", "ics"},
		{"list", "--source", "ftp"},
	}
	for _, args := range tests {
		if _, _, err := env.run(t, args...); err == nil || errors.Is(err, errNoResults) {
			t.Errorf("%v: error = %v, want a usage error", args, err)
		}
	}
	if n := atomic.LoadInt32(env.hits); n != 0 {
		t.Errorf("invalid flags should fail before fetching, got %d fetches", n)
	}
}

func TestList_Cache(t *testing.T) {
	env := newCLIEnv(t)
	for i := 0; i < 2; i++ {
		if _, _, err := env.run(t, "list"); err != nil {
			t.Fatalf("list error: %v", err)
		}
	}
	if n := atomic.LoadInt32(env.hits); n != 1 {
		t.Errorf("fetches = %d, want 1 (second run from cache)", n)
	}

	if _, _, err := env.run(t, "list", "--refresh"); err != nil {
		t.Fatalf("list error: %v", err)
	}
	if n := atomic.LoadInt32(env.hits); n != 2 {
		t.Errorf("fetches = %d, want 2 after --refresh", n)
	}
}

func TestList_FetchFailure(t *testing.T) {
	env := newCLIEnv(t)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	out, _, err := runCLI(t, "list", "--source-url", down.URL, "--cache-dir", env.cacheDir, "--log-level", "error")
	if !errors.Is(err, errNoResults) {
		t.Fatalf("error = %v, want errNoResults", err)
	}
	if !strings.Contains(out, "Erro ao buscar CSV: unexpected status code: 500") {
		t.Errorf("output missing feedback:\n%s", out)
	}
}

func TestFilters(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run(t, "filters")
	if err != nil {
		t.Fatalf("filters error: %v", err)
	}
	for _, want := range []string{"Lojas (3):", "Estados (2):\n  RJ\n  SP\n", "Cidades (3):", "  São Paulo\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLocate_Device(t *testing.T) {
	env := newCLIEnv(t)
	out, stderr, err := env.run(t, "locate", "--lat", "-23.62", "--lng", "-46.70", "--no-ip")
	if err != nil {
		t.Fatalf("locate error: %v", err)
	}
	if !strings.HasPrefix(out, "Loja mais próxima: Atacadão Morumbi (") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "📍") {
		t.Error("cards should carry distances")
	}
	if !strings.Contains(stderr, locate.MessageLocating) {
		t.Errorf("progress missing from stderr: %q", stderr)
	}
}

func TestLocate_IP(t *testing.T) {
	env := newCLIEnv(t)
	ipapi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude": -23.62, "longitude": "-46.70"}`))
	}))
	defer ipapi.Close()
	t.Setenv("AGENDA_IP_LOOKUP_URL", ipapi.URL)

	out, _, err := env.run(t, "locate", "--format", "json")
	if err != nil {
		t.Fatalf("locate error: %v", err)
	}
	var result OutputResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Locate == nil || result.Locate.Source != locate.SourceIP {
		t.Fatalf("locate = %+v", result.Locate)
	}
	if result.Locate.Message != agenda.MessageIPResolved {
		t.Errorf("message = %q", result.Locate.Message)
	}
	if result.Locate.Nearest != "Atacadão Morumbi" || result.Locate.NearestKm == nil {
		t.Errorf("nearest = %q %v", result.Locate.Nearest, result.Locate.NearestKm)
	}
}

func TestLocate_Unresolved(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
		state   string
	}{
		{"no position", []string{"--no-ip"}, locate.MessageUnavailable, "unavailable"},
		{"permission blocked", []string{"--lat", "-23.6", "--lng", "-46.7", "--permission", "denied"}, locate.MessagePermissionBlocked, "denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			out, _, err := env.run(t, append([]string{"locate"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.state) {
				t.Errorf("error = %v, want state %s", err, tt.state)
			}
			if !strings.HasPrefix(out, tt.message) {
				t.Errorf("output = %q, want prefix %q", out, tt.message)
			}
		})
	}
}

func TestCache(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "list"); err != nil {
		t.Fatalf("list error: %v", err)
	}

	out, _, err := env.run(t, "cache", "info")
	if err != nil || !strings.Contains(out, "Records: 3") {
		t.Errorf("cache info = %q, %v", out, err)
	}

	out, _, err = env.run(t, "cache", "clear")
	if err != nil || !strings.HasPrefix(out, "Cache cleared: ") {
		t.Errorf("cache clear = %q, %v", out, err)
	}

	out, _, err = env.run(t, "cache", "info")
	if err != nil || !strings.HasPrefix(out, "Cache empty or expired") {
		t.Errorf("cache info after clear = %q, %v", out, err)
	}
}

func TestVisits(t *testing.T) {
	newCLIEnv(t)
	dbPath := filepath.Join(t.TempDir(), "visits.db")
	t.Setenv("AGENDA_VISITS_DB", dbPath)

	store, err := visits.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"visitas:index", "visitas:index", "visitas:acc", "visits:home", "visits:agenda", "visits:home"} {
		if _, err := store.Incr(ctx, key); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	out, _, err := runCLI(t, "visits", "get")
	if err != nil {
		t.Fatalf("visits get error: %v", err)
	}
	for _, want := range []string{"index", "k ", "acc"} {
		if !strings.Contains(out, want) {
			t.Errorf("visits get missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, "visits", "stats", "--format", "json")
	if err != nil {
		t.Fatalf("visits stats error: %v", err)
	}
	var stats map[string]int64
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(stats) != 2 || stats["home"] != 2 || stats["agenda"] != 1 {
		t.Errorf("stats = %v", stats)
	}

	out, _, err = runCLI(t, "visits", "get", "acc", "--format", "json")
	if err != nil || strings.TrimSpace(out) != "{\n  \"acc\": 1\n}" {
		t.Errorf("visits get acc = %q, %v", out, err)
	}
}

func TestVisitsPingAndTracker(t *testing.T) {
	env := newCLIEnv(t)

	var mu sync.Mutex
	var pings []string
	tracker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pings = append(pings, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer tracker.Close()

	out, _, err := runCLI(t, "visits", "ping", "k", "--url", tracker.URL)
	if err != nil || out != "Registered view of k\n" {
		t.Errorf("visits ping = %q, %v", out, err)
	}

	if _, _, err := runCLI(t, "visits", "ping"); err == nil {
		t.Error("ping without URL should fail")
	}

	t.Setenv("AGENDA_TRACKER_URL", tracker.URL)
	if _, _, err := env.run(t, "list"); err != nil {
		t.Fatalf("list error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"/api/registrar?pagina=k", "/api/registrar?pagina=index"}
	if strings.Join(pings, ",") != strings.Join(want, ",") {
		t.Errorf("pings = %v, want %v", pings, want)
	}
}
