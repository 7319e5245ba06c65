// Package chi exposes the event index over HTTP: similarity search,
// collection stats, reset, and health.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/madlife/eventindex/internal/domain"
	domsearch "github.com/madlife/eventindex/internal/domain/search"
	collectionuc "github.com/madlife/eventindex/internal/usecase/collection"
	searchuc "github.com/madlife/eventindex/internal/usecase/search"
	"github.com/madlife/eventindex/internal/version"
)

// Server holds the HTTP handlers over the use-case services.
type Server struct {
	search      *searchuc.Service
	collections *collectionuc.Service
	health      domain.HealthChecker
	logger      *zap.Logger
}

// NewServer creates an HTTP API server. health may be nil when the
// embedding provider exposes no health check.
func NewServer(
	search *searchuc.Service,
	collections *collectionuc.Service,
	health domain.HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:      search,
		collections: collections,
		health:      health,
		logger:      logger,
	}
}

// Routes mounts the API handlers on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Get("/stats", s.handleStats)
	r.Post("/reset", s.handleReset)
	r.Get("/healthz", s.handleHealth)
}

type searchRequest struct {
	Query   string            `json:"query"`
	TopK    int               `json:"top_k"`
	Filters map[string]string `json:"filters,omitempty"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []domsearch.Result `json:"results"`
}

// handleSearch handles POST /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.TopK, req.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if results == nil {
		results = []domsearch.Result{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   req.Query,
		Count:   len(results),
		Results: results,
	})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.collections.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type resetResponse struct {
	OK bool `json:"ok"`
}

// handleReset handles POST /reset. The reset outcome is reported in the
// body; a failed reset is 500 with ok=false, not an opaque error.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ok := s.collections.Reset(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resetResponse{OK: ok})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.health != nil {
		if err := s.health.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, healthResponse{Status: status, Version: version.Version})
}

// handleDomainError maps domain sentinel errors to HTTP status codes.
// Callers can tell "no results" (200 with empty results) apart from
// "search subsystem unavailable" (5xx).
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, "embedding_provider_error", err.Error())
	case errors.Is(err, domain.ErrCollectionNotReady):
		writeError(w, http.StatusServiceUnavailable, "collection_not_ready", err.Error())
	default:
		s.logger.Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
