// Package server exposes the matcher and the directory listings over HTTP.
package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
	"github.com/thomhuang/PharmacyFinder/internal/match"
)

const maxBodyBytes = 1 << 20

// Handler serves requests against whatever snapshot the store currently holds.
type Handler struct {
	store   *directory.Store
	matcher *match.Matcher
	router  chi.Router
}

func NewHandler(store *directory.Store, matcher *match.Matcher) http.Handler {
	h := &Handler{store: store, matcher: matcher}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(RequestBodyLimit(maxBodyBytes))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSnapshot)
			r.Post("/match", h.match)
			r.Post("/candidates", h.candidates)
			r.Get("/cities", h.cities)
			r.Get("/cities/{city}/postal-codes", h.cityPostalCodes)
			r.Get("/pharmacies/{id}", h.pharmacy)
			r.Get("/issues", h.issues)
		})
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// requireSnapshot answers 503 until the first snapshot is loaded.
func (h *Handler) requireSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.store.Current() == nil {
			writeError(w, r, "pharmacy data not loaded", "NOT_READY", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string           `json:"status"`
		RadiusKm float64          `json:"radius_km"`
		Policy   match.Policy     `json:"stock_policy"`
		Data     *directory.Stats `json:"data,omitempty"`
	}
	resp := response{Status: "ok", RadiusKm: h.matcher.RadiusKm(), Policy: h.matcher.Policy()}
	snap := h.store.Current()
	if snap == nil {
		resp.Status = "loading"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	stats := snap.Stats()
	resp.Data = &stats
	writeJSON(w, http.StatusOK, resp)
}

// match handles POST /api/match. Not-found outcomes are results and answer 200;
// only invalid_input answers 400.
func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	var req match.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.matcher.Match(h.store.Current(), req)
	writeJSON(w, statusCode(res.Status), res)
}

// candidates handles POST /api/candidates?limit=N.
func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var req match.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	rk := h.matcher.Candidates(h.store.Current(), req, limit)
	writeJSON(w, statusCode(rk.Status), rk)
}

func (h *Handler) cities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cities": h.store.Current().Cities()})
}

func (h *Handler) cityPostalCodes(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	if unescaped, err := url.PathUnescape(city); err == nil {
		city = unescaped
	}
	codes := h.store.Current().CityPostalCodes(city)
	if len(codes) == 0 {
		writeError(w, r, "unknown city: "+city, "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "postal_codes": codes})
}

func (h *Handler) pharmacy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.store.Current().Pharmacy(id)
	if !ok {
		writeError(w, r, "unknown pharmacy: "+id, "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) issues(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded_at": snap.Stats().LoadedAt.Format(time.RFC3339),
		"issues":    snap.Issues(),
	})
}

func statusCode(s match.Status) int {
	if s == match.StatusInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusOK
}
