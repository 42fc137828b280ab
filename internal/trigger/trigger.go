package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// ArticlesTag is the cache tag covering every page that lists articles.
const ArticlesTag = "articles"

type Ingester interface {
	IngestAll(ctx context.Context) ([]model.IngestReport, error)
}

// CacheInvalidator drops cached pages of the downstream site for a tag.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tag string) error
}

// Server exposes the on-demand ingestion and cache revalidation endpoints.
type Server struct {
	ingester Ingester
	cache    CacheInvalidator
	secret   string
}

// NewServer builds the handlers. With an empty secret the endpoints are open.
func NewServer(ingester Ingester, cache CacheInvalidator, secret string) *Server {
	return &Server{
		ingester: ingester,
		cache:    cache,
		secret:   secret,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/revalidate", s.handleRevalidate)
	mux.HandleFunc("POST /api/revalidate", s.handleRevalidate)
	return mux
}

type ingestResponse struct {
	OK     bool                 `json:"ok"`
	Report []model.IngestReport `json:"report"`
}

type revalidateResponse struct {
	OK          bool `json:"ok"`
	Revalidated bool `json:"revalidated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	reports, err := s.ingester.IngestAll(r.Context())
	if err != nil {
		log.Printf("[ERROR] ingest request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if err := s.cache.Invalidate(r.Context(), ArticlesTag); err != nil {
		log.Printf("[WARN] failed to invalidate %q cache: %v", ArticlesTag, err)
	}

	if reports == nil {
		reports = []model.IngestReport{}
	}

	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Report: reports})
}

func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	if err := s.cache.Invalidate(r.Context(), ArticlesTag); err != nil {
		log.Printf("[ERROR] revalidate request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, revalidateResponse{OK: true, Revalidated: true})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}

	got := r.URL.Query().Get("secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] failed to write response: %v", err)
	}
}
