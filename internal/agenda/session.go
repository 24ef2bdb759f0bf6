// Package agenda holds the Session: the single owner of the event collection, the filter
// selection, the user position and the status message shown to the user.
//
// Every operation that changes the view (loading, filtering, locating, clearing the cache)
// goes through the Session. It is safe for concurrent use.
package agenda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/geo"
	"github.com/agenda-lojas/agenda/internal/loader"
	"github.com/agenda-lojas/agenda/internal/locate"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/render"
)

// User-facing status messages
const (
	MessageLoading      = "Carregando dados..."
	MessageWaitingData  = "Aguardando carregamento dos dados..."
	MessageCacheCleared = "Filtros removidos. Recarregando..."
	MessageIPResolved   = "Localização aproximada por IP obtida — distâncias atualizadas."
	MessageNoNearest    = "Localização obtida — nenhuma loja futura encontrada com coordenadas."
)

// Locator runs the locate ladder
type Locator interface {
	Locate(ctx context.Context) (*locate.Outcome, error)
}

// LocateResult is the outcome of Session.Locate
type LocateResult struct {
	Outcome   *locate.Outcome `json:"outcome"`
	Nearest   *event.Record   `json:"nearest,omitempty"`
	NearestKm float64         `json:"nearest_km,omitempty"`
	Message   string          `json:"message"`
	View      render.Result   `json:"view"`
}

// Session owns the working state
type Session struct {
	loader    *loader.Loader
	locator   Locator
	log       *logger.Logger
	now       func() time.Time
	staleDays int

	// loadMu serializes loads; mu guards the fields below
	loadMu sync.Mutex
	mu     sync.RWMutex

	records    []*event.Record
	loaded     bool
	fromCache  bool
	loadedAt   time.Time
	selection  *filter.Selection
	user       *geo.Point
	userSource locate.Source
	panelOpen  bool
	feedback   string
	lastDiff   *event.DiffResult
}

// Option configures a Session
type Option func(*Session)

// WithLocator sets the default locator used by Locate
func WithLocator(l Locator) Option {
	return func(s *Session) { s.locator = l }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithClock overrides the current time
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a Session backed by l
func New(l *loader.Loader, opts ...Option) *Session {
	s := &Session{
		loader:    l,
		staleDays: l.StaleDays(),
		log:       logger.Default(),
		now:       time.Now,
		selection: filter.NewSelection(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Fields{"component": "session"})
	return s
}

func (s *Session) today() time.Time {
	return event.Today(s.now())
}

// Init loads the collection. force bypasses the cache. The returned error is non-nil
// only when ctx ends; fetch failures end up in Feedback with an empty collection.
func (s *Session) Init(ctx context.Context, force bool) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx, force)
}

// Refresh loads through the cache when the collection was never loaded, is older than the
// loader's max age, or was loaded on an earlier day. Long-running callers run it before
// each use of the collection.
func (s *Session) Refresh(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.fresh(s.now()) {
		return nil
	}
	return s.load(ctx, false)
}

func (s *Session) fresh(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return false
	}
	return now.Sub(s.loadedAt) < s.loader.MaxAge() && event.Today(now).Equal(event.Today(s.loadedAt))
}

// load runs one load. Callers hold loadMu.
func (s *Session) load(ctx context.Context, force bool) error {
	s.setFeedback(MessageLoading)

	res, err := s.loader.Load(ctx, force)
	if err != nil {
		s.setFeedback("Erro ao carregar dados.")
		return fmt.Errorf("initializing session: %w", err)
	}

	s.mu.Lock()
	previous, reloaded := s.records, s.loaded
	s.records = res.Records
	s.loaded = true
	s.fromCache = res.FromCache
	s.loadedAt = s.now()
	s.feedback = res.Feedback
	s.mu.Unlock()

	s.log.Info("Session loaded", logger.Fields{"records": len(res.Records), "from_cache": res.FromCache})
	if reloaded {
		s.logChanges(event.Diff(previous, res.Records))
	}
	return nil
}

// LastDiff returns how the collection changed in the most recent reload, or nil before one
func (s *Session) LastDiff() *event.DiffResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDiff
}

func (s *Session) logChanges(diff *event.DiffResult) {
	s.mu.Lock()
	s.lastDiff = diff
	s.mu.Unlock()

	if !diff.HasChanges() {
		return
	}
	s.log.Info("Collection changed", logger.Fields{
		"added":   len(diff.Added),
		"removed": len(diff.Removed),
		"changed": len(diff.Changes),
	})
	for _, c := range diff.Changes {
		s.log.Debug("Training rescheduled", logger.Fields{"name": c.Name, "field": c.ChangeType, "old": c.OldValue, "new": c.NewValue})
	}
}

// EnsureLoaded forces a fresh load when the collection is empty
func (s *Session) EnsureLoaded(ctx context.Context) error {
	if len(s.Records()) > 0 {
		return nil
	}
	s.setFeedback(MessageWaitingData)
	return s.Init(ctx, true)
}

// Records returns the working set as of today: a copy of the collection without stale
// records, in the two-tier date order
func (s *Session) Records() []*event.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workingSet(s.today())
}

// workingSet recomputes the stale cutoff and the date order for today, since the
// collection may have been loaded on an earlier day. Callers hold mu.
func (s *Session) workingSet(today time.Time) []*event.Record {
	records := event.DropInvalid(s.records, today, s.staleDays)
	event.SortByDate(records, today)
	return records
}

// Loaded reports whether a load has completed, and whether it came from the cache
func (s *Session) Loaded() (loaded, fromCache bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, s.fromCache
}

// Feedback returns the current status message
func (s *Session) Feedback() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedback
}

func (s *Session) setFeedback(msg string) {
	s.mu.Lock()
	s.feedback = msg
	s.mu.Unlock()
}

// Panel returns the filter options for the current collection
func (s *Session) Panel() filter.Panel {
	return filter.BuildPanel(s.Records())
}

// Selection returns a copy of the active selection
func (s *Session) Selection() *filter.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Clone()
}

// UserLocation returns the located position, or nil
func (s *Session) UserLocation() *geo.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	p := *s.user
	return &p
}

// PanelOpen reports whether the filter panel is expanded
func (s *Session) PanelOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panelOpen
}

// SetPanelOpen expands or collapses the filter panel
func (s *Session) SetPanelOpen(open bool) {
	s.mu.Lock()
	s.panelOpen = open
	s.mu.Unlock()
}

// SetSelection replaces the selection and re-renders. It never locates.
func (s *Session) SetSelection(sel *filter.Selection) render.Result {
	s.mu.Lock()
	s.selection = sel.Clone()
	s.mu.Unlock()
	return s.Render()
}

// ClearFilters resets every filter group and re-renders. It never locates.
func (s *Session) ClearFilters() render.Result {
	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()
	return s.Render()
}

// Render renders the collection with the session's selection and position.
// A no-results render sets the status message; any other render clears it.
func (s *Session) Render() render.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	res := render.Render(s.workingSet(today), s.selection, s.user, today)
	s.feedback = res.Message
	return res
}

// View renders with an explicit selection and position, leaving the session untouched
func (s *Session) View(sel *filter.Selection, user *geo.Point) render.Result {
	return render.Render(s.Records(), sel, user, s.today())
}

// Locate runs the default locator
func (s *Session) Locate(ctx context.Context) (*LocateResult, error) {
	if s.locator == nil {
		return s.LocateWith(ctx, locate.New(nil, nil, locate.WithLogger(s.log)))
	}
	return s.LocateWith(ctx, s.locator)
}

// LocateWith obtains the user position with loc. On success it stores the position,
// clears every filter, collapses the panel and renders by distance; the result names the
// nearest upcoming store. On failure the session keeps its previous position.
func (s *Session) LocateWith(ctx context.Context, loc Locator) (*LocateResult, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	s.setFeedback(locate.MessageLocating)
	out, err := loc.Locate(ctx)
	if err != nil {
		return nil, err
	}

	if !out.Resolved() {
		view := s.Render()
		s.setFeedback(out.Message)
		return &LocateResult{Outcome: out, Message: out.Message, View: view}, nil
	}

	s.mu.Lock()
	p := *out.Point
	s.user = &p
	s.userSource = out.Source
	s.selection.Clear()
	s.panelOpen = false
	s.mu.Unlock()

	view := s.Render()
	records := s.Records()
	nearest, km := render.Nearest(records, p, s.today())
	msg := LocatedMessage(out.Source, nearest, km)
	s.setFeedback(msg)

	result := &LocateResult{Outcome: out, Message: msg, View: view}
	if nearest != nil {
		result.Nearest = nearest
		result.NearestKm = km
	}
	return result, nil
}

// LocatedMessage is the status message after a successful locate
func LocatedMessage(src locate.Source, nearest *event.Record, km float64) string {
	switch {
	case src == locate.SourceIP:
		return MessageIPResolved
	case nearest == nil:
		return MessageNoNearest
	default:
		return fmt.Sprintf("Loja mais próxima: %s (%s km).", nearest.Name, geo.FormatKm(km))
	}
}

// ClearCache drops the cached collection, resets the filters and reloads from the source
func (s *Session) ClearCache(ctx context.Context) error {
	if cache := s.loader.Cache(); cache != nil {
		if err := cache.Clear(); err != nil {
			s.log.Warn("Cache clear failed", logger.Fields{"error": err.Error()})
		}
	}

	s.mu.Lock()
	s.selection.Clear()
	s.feedback = MessageCacheCleared
	s.mu.Unlock()

	return s.Init(ctx, true)
}
