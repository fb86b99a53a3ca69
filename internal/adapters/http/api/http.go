// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/campsift/internal/adapters/repository"
	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/jobs"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// IngestCandidate queues a scraped candidate for async validation.
	// accepted is false on backpressure; duplicate is true when the ingest
	// key was already seen this run.
	IngestCandidate(ctx context.Context, c model.Candidate) (accepted, duplicate bool)

	// Source operations.
	UpsertSource(ctx context.Context, src model.Source) error
	SourceQuality(ctx context.Context, sourceID string) (model.Source, []model.Alert, error)
	RecordScrapeOutcome(ctx context.Context, sourceID string, succeeded bool) error

	// Maintenance jobs, exposed for operator-triggered runs.
	RunWithinSourceMerge(ctx context.Context, opts jobs.Options) (jobs.Report, error)
	RunCrossSourceScan(ctx context.Context, opts jobs.Options) (jobs.Report, error)
	RunQualityCheck(ctx context.Context, opts jobs.Options) (jobs.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	candidatesHandler  *CandidatesHandler
	sourcesHandler     *SourcesHandler
	maintenanceHandler *MaintenanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		candidatesHandler:  NewCandidatesHandler(deps),
		sourcesHandler:     NewSourcesHandler(deps),
		maintenanceHandler: NewMaintenanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.candidatesHandler.HandlePostCandidate, "candidates"))
	mux.HandleFunc("/sources", MetricsMiddleware(s.sourcesHandler.HandlePutSource, "sources"))
	mux.HandleFunc("/sources/", MetricsMiddleware(s.sourcesHandler.HandleSourceSubpath, "sources"))
	mux.HandleFunc("/maintenance/", MetricsMiddleware(s.maintenanceHandler.HandlePostJob, "maintenance"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repository.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
