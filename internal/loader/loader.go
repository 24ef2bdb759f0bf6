// Package loader produces the event collection from the cache or the spreadsheet source.
//
// A load first tries the cache (unless forced). On a miss it fetches the source once,
// maps every row to a record, drops invalid and stale records, sorts the rest and writes
// them back to the cache. Fetch failures are not returned as errors: the load degrades to
// an empty collection and Result.Feedback carries the message to show.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/sheet"
	"github.com/agenda-lojas/agenda/internal/storage"
)

// Metric names
const (
	MetricCacheHit    = "loader.cache_hit"
	MetricFetchOK     = "loader.fetch_ok"
	MetricFetchFailed = "loader.fetch_failed"
	MetricRecords     = "loader.records"
	MetricLoad        = "loader.load"
)

// Result is the outcome of a load
type Result struct {
	Records   []*event.Record
	FromCache bool
	CachedAt  time.Time // capture time of the adopted cache entry
	Feedback  string    // user-visible message, empty on success
	FetchErr  error     // the source error behind Feedback, if any
}

// Loader loads the event collection
type Loader struct {
	source    sheet.Source
	cache     *storage.Storage // nil disables caching
	staleDays int
	log       *logger.Logger
	metrics   *logger.Metrics
	now       func() time.Time
}

// Option configures a Loader
type Option func(*Loader)

// WithCache enables the collection cache
func WithCache(cache *storage.Storage) Option {
	return func(l *Loader) { l.cache = cache }
}

// WithStaleDays sets how many days past records are kept
func WithStaleDays(days int) Option {
	return func(l *Loader) { l.staleDays = days }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *logger.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithClock overrides the current time
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// New creates a Loader reading from source
func New(source sheet.Source, opts ...Option) *Loader {
	l := &Loader{
		source:    source,
		staleDays: event.StaleAfterDays,
		log:       logger.Default(),
		metrics:   logger.DefaultMetrics(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(logger.Fields{"component": "loader", "source": source.Name()})
	return l
}

// Cache returns the cache, or nil when caching is disabled
func (l *Loader) Cache() *storage.Storage {
	return l.cache
}

// StaleDays returns how many days past records are kept
func (l *Loader) StaleDays() int {
	return l.staleDays
}

// MaxAge returns how long a loaded collection stays fresh: the cache TTL, or
// storage.DefaultTTL without a cache
func (l *Loader) MaxAge() time.Duration {
	if l.cache == nil {
		return storage.DefaultTTL
	}
	return l.cache.TTL()
}

// Load returns the event collection. force skips the cache read (the result is still
// written back). The error is non-nil only when ctx is done.
func (l *Loader) Load(ctx context.Context, force bool) (*Result, error) {
	start := time.Now()
	defer func() {
		l.metrics.RecordTiming(MetricLoad, time.Since(start))
	}()

	if !force {
		if res, ok := l.fromCache(); ok {
			return res, nil
		}
	}

	rows, fetchErr := l.source.Fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("loading events: %w", ctxErr)
	}

	res := &Result{}
	if fetchErr != nil {
		l.metrics.IncrCounter(MetricFetchFailed)
		l.log.Error("Fetch failed", logger.Fields{"kind": failureKind(fetchErr)}, fetchErr)
		res.FetchErr = fetchErr
		res.Feedback = FeedbackFor(fetchErr)
		rows = nil
	} else {
		l.metrics.IncrCounter(MetricFetchOK)
		l.log.Info("Fetched rows", logger.Fields{"rows": len(rows)})
	}

	now := l.now()
	res.Records = Normalize(rows, now, l.staleDays)
	l.metrics.SetGauge(MetricRecords, float64(len(res.Records)))
	l.log.Info("Prepared events", logger.Fields{"records": len(res.Records), "rows": len(rows)})

	if l.cache != nil {
		if err := l.cache.Save(res.Records); err != nil {
			l.log.Warn("Cache write failed", logger.Fields{"error": err.Error()})
		}
	}

	return res, nil
}

func (l *Loader) fromCache() (*Result, bool) {
	if l.cache == nil {
		return nil, false
	}

	records, cachedAt, err := l.cache.Load()
	switch {
	case err == nil:
		// The entry may predate a day boundary
		today := event.Today(l.now())
		records = event.DropInvalid(records, today, l.staleDays)
		event.SortByDate(records, today)
		if len(records) == 0 {
			return nil, false
		}
		l.metrics.IncrCounter(MetricCacheHit)
		l.metrics.SetGauge(MetricRecords, float64(len(records)))
		l.log.Debug("Loaded events from cache", logger.Fields{"records": len(records), "cached_at": cachedAt.Format(time.RFC3339)})
		return &Result{Records: records, FromCache: true, CachedAt: cachedAt}, true
	case errors.Is(err, storage.ErrCacheMiss):
		return nil, false
	case errors.Is(err, storage.ErrCacheCorrupt):
		l.log.Warn("Cache unreadable, clearing", logger.Fields{"error": err.Error()})
		if clearErr := l.cache.Clear(); clearErr != nil {
			l.log.Warn("Cache clear failed", logger.Fields{"error": clearErr.Error()})
		}
		return nil, false
	default:
		l.log.Warn("Cache read failed", logger.Fields{"error": err.Error()})
		return nil, false
	}
}

// FeedbackFor returns the user-visible message for a source failure
func FeedbackFor(err error) string {
	return "Erro ao buscar CSV: " + err.Error()
}

func failureKind(err error) string {
	var htmlErr *sheet.HTMLPayloadError
	var statusErr *sheet.StatusError
	switch {
	case errors.As(err, &htmlErr):
		return "html_payload"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "network"
	}
}
