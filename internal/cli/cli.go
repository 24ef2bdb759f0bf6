package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenda-lojas/agenda/internal/agenda"
	"github.com/agenda-lojas/agenda/internal/config"
	"github.com/agenda-lojas/agenda/internal/loader"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/sheet"
	"github.com/agenda-lojas/agenda/internal/storage"
	"github.com/agenda-lojas/agenda/internal/visits"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNoResults = 2
)

// errNoResults ends a command with ExitNoResults without printing an error
var errNoResults = errors.New("no trainings found")

// trackerFlushTimeout bounds how long a command waits for its page-view ping
const trackerFlushTimeout = 2 * time.Second

var (
	flagConfig     string
	flagLogLevel   string
	flagSource     string
	flagSourceURL  string
	flagSourcePath string
	flagCacheDir   string
	flagRefresh    bool
	flagVerbose    bool
)

// now is the clock that decides which trainings are upcoming
var now = time.Now

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Find store trainings near you",
		Long: `A CLI for the store training agenda.
Reads the published training spreadsheet, filters trainings by store, state and city,
and sorts upcoming trainings by distance from a position. The serve command exposes the
same data as a JSON API together with the page-view counters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&flagSource, "source", "", "Spreadsheet source: csv, json or file")
	flags.StringVar(&flagSourceURL, "source-url", "", "URL of the csv or json source")
	flags.StringVar(&flagSourcePath, "source-path", "", "Local .csv, .xlsx or .json file (implies --source file)")
	flags.StringVar(&flagCacheDir, "cache-dir", "", "Cache directory")
	flags.BoolVar(&flagRefresh, "refresh", false, "Ignore the cache and fetch the spreadsheet")
	flags.BoolVar(&flagVerbose, "verbose", false, "Enable verbose output and debug logging")

	cmd.AddCommand(
		newListCmd(),
		newFiltersCmd(),
		newLocateCmd(),
		newServeCmd(),
		newCacheCmd(),
		newVisitsCmd(),
	)
	return cmd
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errNoResults):
		os.Exit(ExitNoResults)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// loadConfig reads the configuration and applies the persistent flags on top
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	if flagSourcePath != "" {
		cfg.Source.Kind = config.SourceFile
		cfg.Source.Path = flagSourcePath
	}
	if flagSource != "" {
		cfg.Source.Kind = strings.ToLower(flagSource)
	}
	if flagSourceURL != "" {
		if cfg.Source.Kind == config.SourceJSON {
			cfg.Source.JSONURL = flagSourceURL
		} else {
			cfg.Source.URL = flagSourceURL
		}
	}
	if flagCacheDir != "" {
		cfg.Cache.Dir = flagCacheDir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds what the commands share
type app struct {
	cfg     config.Config
	log     *logger.Logger
	cache   *storage.Storage
	session *agenda.Session
	tracker *visits.Tracker
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	cache, err := storage.New(cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	l := loader.New(newSource(cfg.Source),
		loader.WithCache(cache),
		loader.WithStaleDays(cfg.StaleDays),
		loader.WithLogger(log),
		loader.WithClock(now),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		cache:   cache,
		session: agenda.New(l, agenda.WithLogger(log), agenda.WithClock(now)),
		tracker: visits.NewTracker(cfg.Tracker.BaseURL, log),
	}, nil
}

func newSource(cfg config.SourceConfig) sheet.Source {
	switch cfg.Kind {
	case config.SourceJSON:
		return sheet.NewJSONSource(cfg.JSONURL)
	case config.SourceFile:
		return sheet.NewFileSource(cfg.Path, cfg.XLSXSheet)
	default:
		return sheet.NewHTTPSource(cfg.URL)
	}
}

// load fills the session, honoring --refresh, and registers a page view
func (a *app) load(ctx context.Context) error {
	a.tracker.Fire(a.cfg.Tracker.Page)
	return a.session.Init(ctx, flagRefresh)
}

func (a *app) close() {
	a.tracker.Flush(trackerFlushTimeout)
}
