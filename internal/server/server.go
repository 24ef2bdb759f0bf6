// Package server exposes the agenda as a JSON HTTP API.
//
// Event and locate requests render with their own selection and position through
// Session.View, so concurrent clients never change each other's view. Only clearing the
// cache touches the shared session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agenda-lojas/agenda/internal/agenda"
	"github.com/agenda-lojas/agenda/internal/locate"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/visits"
)

const shutdownTimeout = 10 * time.Second

// IPLocatorFunc returns the IP locator for a client address. An empty address means the
// caller's own public address.
type IPLocatorFunc func(clientIP string) locate.IPLocator

// Server serves the API
type Server struct {
	session  *agenda.Session
	store    visits.Store
	visits   *visits.Handler
	ipFor    IPLocatorFunc
	ceilings [2]time.Duration
	metrics  *logger.Metrics
	log      *logger.Logger
	now      func() time.Time
	router   chi.Router
}

// Option configures a Server
type Option func(*Server)

// WithVisits mounts the page-view counter endpoints backed by store
func WithVisits(store visits.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithIPLocator overrides how the IP fallback is built for each request
func WithIPLocator(fn IPLocatorFunc) Option {
	return func(s *Server) { s.ipFor = fn }
}

// WithIPLookupURL points the IP fallback at an ipapi.co compatible service
func WithIPLookupURL(baseURL string) Option {
	return func(s *Server) {
		client := locate.NewIPAPIClient(baseURL)
		s.ipFor = func(ip string) locate.IPLocator { return client.ForIP(ip) }
	}
}

// WithLocateCeilings overrides the quick and precise attempt ceilings
func WithLocateCeilings(quick, precise time.Duration) Option {
	return func(s *Server) { s.ceilings = [2]time.Duration{quick, precise} }
}

// WithMetrics sets the metrics reported by /api/metrics
func WithMetrics(m *logger.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithClock overrides the current time
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server over session
func New(session *agenda.Session, opts ...Option) *Server {
	s := &Server{
		session:  session,
		ceilings: [2]time.Duration{locate.QuickCeiling, locate.PreciseCeiling},
		metrics:  logger.DefaultMetrics(),
		log:      logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = s.log.With(logger.Fields{"component": "server"})
	if s.ipFor == nil {
		WithIPLookupURL("")(s)
	}
	if s.store != nil {
		s.visits = visits.NewHandler(s.store, s.log)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleEvents)
		r.Get("/events/{id}.ics", s.handleEventICS)
		r.Get("/calendar.ics", s.handleCalendar)
		r.Get("/filters", s.handleFilters)
		r.Get("/locate", s.handleLocate)
		r.Post("/cache/clear", s.handleClearCache)
		r.Get("/metrics", s.handleMetrics)

		if s.visits != nil {
			s.visits.Routes(r)
		}
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Locate can wait on both attempt ceilings and the IP lookup
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
