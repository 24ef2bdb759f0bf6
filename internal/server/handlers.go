package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agenda-lojas/agenda/internal/agenda"
	"github.com/agenda-lojas/agenda/internal/calendar"
	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/geo"
	"github.com/agenda-lojas/agenda/internal/locate"
	"github.com/agenda-lojas/agenda/internal/logger"
	"github.com/agenda-lojas/agenda/internal/render"
)

// Query parameters of the locate and events endpoints
const (
	ParamLat        = "lat"
	ParamLng        = "lng"
	ParamPermission = "permission"
)

type eventsResponse struct {
	render.Result
	Total     int    `json:"total"`
	Filters   string `json:"filters"`
	Feedback  string `json:"feedback,omitempty"`
	FromCache bool   `json:"from_cache"`
}

type locateResponse struct {
	*locate.Outcome
	Nearest   *event.Record `json:"nearest,omitempty"`
	NearestKm *float64      `json:"nearest_km,omitempty"`
	Message   string        `json:"message"`
	View      render.Result `json:"view"`
}

type clearResponse struct {
	OK       bool   `json:"ok"`
	Records  int    `json:"records"`
	Feedback string `json:"feedback,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleEvents renders the collection with the request's filters and optional position
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}

	q := r.URL.Query()
	user, err := positionFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel := filter.FromQuery(q)
	_, fromCache := s.session.Loaded()
	writeJSON(w, http.StatusOK, eventsResponse{
		Result:    s.session.View(sel, user),
		Total:     len(s.session.Records()),
		Filters:   sel.String(),
		Feedback:  s.session.Feedback(),
		FromCache: fromCache,
	})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.session.Panel())
}

// handleLocate runs the locate ladder for one client. lat/lng stand in for the device
// fix; without them the ladder falls through to the IP lookup of the client address.
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	device, err := positionFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []locate.Option{
		locate.WithCeilings(s.ceilings[0], s.ceilings[1]),
		locate.WithLogger(s.log),
	}
	if raw := strings.TrimSpace(q.Get(ParamPermission)); raw != "" {
		p := locate.Permission(strings.ToLower(raw))
		switch p {
		case locate.PermissionGranted, locate.PermissionPrompt, locate.PermissionDenied:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid permission %q", raw))
			return
		}
		opts = append(opts, locate.WithPermissionChecker(locate.StaticPermission(p)))
	}

	if !s.ensureLoaded(w, r) {
		return
	}
	// Locating against an empty collection forces a fresh load first
	if err := s.session.EnsureLoaded(r.Context()); err != nil {
		s.loadFailed(w, r, err)
		return
	}

	orch := locate.New(locate.StaticProvider{Point: device}, s.ipFor(clientIP(r)), opts...)
	out, err := orch.Locate(r.Context())
	if err != nil {
		s.log.Warn("Locate aborted", logger.Fields{"request_id": RequestID(r.Context()), "error": err.Error()})
		writeError(w, http.StatusServiceUnavailable, "locate aborted")
		return
	}

	resp := locateResponse{Outcome: out, Message: out.Message}
	if !out.Resolved() {
		resp.View = s.session.View(filter.FromQuery(q), nil)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// A resolved position replaces every filter, as in the session
	resp.View = s.session.View(filter.NewSelection(), out.Point)
	nearest, km := render.Nearest(s.session.Records(), *out.Point, event.Today(s.now()))
	resp.Message = agenda.LocatedMessage(out.Source, nearest, km)
	if nearest != nil {
		resp.Nearest = nearest
		resp.NearestKm = &km
	}
	s.metrics.IncrCounter("locate.resolved." + string(out.Source))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearCache(r.Context()); err != nil {
		s.log.Error("Cache clear failed", logger.Fields{"request_id": RequestID(r.Context())}, err)
		writeError(w, http.StatusServiceUnavailable, "reload failed")
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{
		OK:       true,
		Records:  len(s.session.Records()),
		Feedback: s.session.Feedback(),
	})
}

func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}

	rec := event.FindByID(s.session.Records(), chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeICS(w, rec.ID+".ics", calendar.GenerateICS(rec))
}

// handleCalendar exports every event matching the request's filters
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}

	sel := filter.FromQuery(r.URL.Query())
	ics := calendar.GenerateBulkICS(sel.Apply(s.session.Records()), "")
	if ics == "" {
		writeError(w, http.StatusNotFound, "no events match")
		return
	}
	writeICS(w, "agenda.ics", ics)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetSnapshot())
}

// ensureLoaded loads the collection on first use and reloads it once it outlives the cache
// TTL or the day it was loaded on. It writes an error response and returns false when the
// request ended before the load did.
func (s *Server) ensureLoaded(w http.ResponseWriter, r *http.Request) bool {
	if err := s.session.Refresh(r.Context()); err != nil {
		s.loadFailed(w, r, err)
		return false
	}
	return true
}

func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, context.Canceled) {
		s.log.Warn("Load aborted", logger.Fields{"request_id": RequestID(r.Context()), "error": err.Error()})
	}
	writeError(w, http.StatusServiceUnavailable, "data not loaded")
}

// positionFromQuery reads lat/lng. Both or neither must be present; a decimal comma is
// accepted.
func positionFromQuery(q url.Values) (*geo.Point, error) {
	rawLat := strings.TrimSpace(q.Get(ParamLat))
	rawLng := strings.TrimSpace(q.Get(ParamLng))
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, errors.New("lat and lng must be given together")
	}

	lat, err := strconv.ParseFloat(strings.Replace(rawLat, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat %q", rawLat)
	}
	lng, err := strconv.ParseFloat(strings.Replace(rawLng, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lng %q", rawLng)
	}

	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// clientIP returns the public address of the client, or "" when it is loopback or private
// so the lookup falls back to the server's own address
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return ""
	}
	return ip.String()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeICS(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
