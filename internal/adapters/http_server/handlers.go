// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"placereviews/internal/app"
	"placereviews/internal/domain"
)

const maxReviewCount = 500

// ArchiveReader serves archived ingest runs.
type ArchiveReader interface {
	LatestReviews(ctx context.Context, url string, limit int) (domain.ReviewsPage, error)
}

// Handlers binds the HTTP routes. A nil Archive leaves the archive route
// unmounted.
type Handlers struct {
	S       app.Scraper
	Archive ArchiveReader
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reviews", h.getReviews)
	s.mux.Get("/v1/place", h.getPlace)
	if h.Archive != nil {
		s.mux.Get("/v1/archive/reviews", h.archivedReviews)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeScrapeError maps service errors onto problem responses.
func writeScrapeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNavigation), errors.Is(err, domain.ErrPage):
		writeProblem(w, http.StatusBadGateway, "Scrape Failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func placeURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := strings.TrimSpace(r.URL.Query().Get("url"))
	if u == "" {
		writeProblem(w, http.StatusBadRequest, "Missing url", "url query parameter is required")
		return "", false
	}
	return u, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		writeProblem(w, http.StatusBadRequest, "Invalid "+name,
			name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return n, true
}

func (h *Handlers) getReviews(w http.ResponseWriter, r *http.Request) {
	u, ok := placeURL(w, r)
	if !ok {
		return
	}
	count, ok := intParam(w, r, "count", app.DefaultReviewCount, 0, maxReviewCount)
	if !ok {
		return
	}
	out, err := h.S.GetReviews(r.Context(), u, count)
	if err != nil {
		writeScrapeError(w, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	u, ok := placeURL(w, r)
	if !ok {
		return
	}
	info, err := h.S.GetPlaceInfo(r.Context(), u)
	if err != nil {
		writeScrapeError(w, err)
		return
	}
	writeJSON(w, r, info)
}

func (h *Handlers) archivedReviews(w http.ResponseWriter, r *http.Request) {
	u, ok := placeURL(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 50, 1, 200)
	if !ok {
		return
	}
	out, err := h.Archive.LatestReviews(r.Context(), u, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "no archived run for url")
			return
		}
		writeScrapeError(w, err)
		return
	}
	writeJSON(w, r, out)
}
