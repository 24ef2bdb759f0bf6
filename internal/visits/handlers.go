package visits

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agenda-lojas/agenda/internal/logger"
)

// Handler serves the counter endpoints
type Handler struct {
	store Store
	log   *logger.Logger
}

// NewHandler creates a Handler over store
func NewHandler(store Store, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{store: store, log: log.With(logger.Fields{"component": "visits"})}
}

// Routes mounts the endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/registrar", h.Registrar)
	r.Get("/track", h.Track)
	r.Get("/visitas", h.Visitas)
	r.Get("/stats", h.Stats)
}

// Registrar counts a view of ?pagina= (default "index")
func (h *Handler) Registrar(w http.ResponseWriter, r *http.Request) {
	page := strings.TrimSpace(r.URL.Query().Get("pagina"))
	if page == "" {
		page = DefaultPage
	}

	if _, err := h.store.Incr(r.Context(), RegistrarPrefix+page); err != nil {
		h.fail(w, "registrar", err)
		return
	}
	logger.IncrCounter("visits.registrar")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Track counts a view of ?page= and returns the new count
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	page := strings.TrimSpace(r.URL.Query().Get("page"))
	if page == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing page parameter"})
		return
	}

	count, err := h.store.Incr(r.Context(), TrackPrefix+page)
	if err != nil {
		h.fail(w, "track", err)
		return
	}
	logger.IncrCounter("visits.track")
	writeJSON(w, http.StatusOK, struct {
		Page   string `json:"page"`
		Visits int64  `json:"visits"`
	}{Page: page, Visits: count})
}

// Visitas reports the registrar counters of the summary pages; missing ones are 0
func (h *Handler) Visitas(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]int64, len(SummaryPages))
	for _, p := range SummaryPages {
		n, err := h.store.Get(r.Context(), RegistrarPrefix+p)
		if err != nil {
			h.fail(w, "visitas", err)
			return
		}
		out[p] = n
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats reports every track counter keyed by page
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counters, err := h.store.List(r.Context(), TrackPrefix)
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, Pages(counters, TrackPrefix))
}

func (h *Handler) fail(w http.ResponseWriter, endpoint string, err error) {
	h.log.Error("Counter store failed", logger.Fields{"endpoint": endpoint}, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "counter store unavailable"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
