// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/campsift/internal/domain/model"
)

// SourcesHandler handles source registration, scrape outcome reporting and
// quality reads.
type SourcesHandler struct {
	deps Dependencies
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(deps Dependencies) *SourcesHandler {
	return &SourcesHandler{deps: deps}
}

// sourceRequest mirrors the write shape for PUT /sources.
type sourceRequest struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CityID            string `json:"city_id"`
	Active            bool   `json:"active"`
	ScraperConfigured bool   `json:"scraper_configured"`
}

func (s sourceRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(s.Name) == "":
		return errors.New("missing name")
	case strings.TrimSpace(s.CityID) == "":
		return errors.New("missing city_id")
	}
	return nil
}

// scrapeOutcomeRequest mirrors the write shape for POST /sources/{id}/scrapes.
type scrapeOutcomeRequest struct {
	Succeeded bool `json:"succeeded"`
}

// scraperHealthResponse is the read shape of a source's scraper health.
type scraperHealthResponse struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalRuns           int        `json:"total_runs"`
	SuccessRate         float64    `json:"success_rate"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	NeedsRegeneration   bool       `json:"needs_regeneration"`
}

// alertResponse is the read shape of one open alert.
type alertResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// qualityResponse is the read shape for GET /sources/{id}/quality.
type qualityResponse struct {
	SourceID         string                `json:"source_id"`
	Name             string                `json:"name"`
	CityID           string                `json:"city_id"`
	Active           bool                  `json:"active"`
	DataQualityScore int                   `json:"data_quality_score"`
	Tier             string                `json:"tier"`
	Health           scraperHealthResponse `json:"health"`
	Alerts           []alertResponse       `json:"alerts"`
}

// HandlePutSource handles PUT /sources requests.
func (h *SourcesHandler) HandlePutSource(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_source"
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	now := time.Now().UTC()
	src := model.Source{
		ID:                req.ID,
		Name:              req.Name,
		CityID:            req.CityID,
		Active:            req.Active,
		ScraperConfigured: req.ScraperConfigured,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := h.deps.UpsertSource(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// HandleSourceSubpath routes GET /sources/{id}/quality and
// POST /sources/{id}/scrapes.
func (h *SourcesHandler) HandleSourceSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sources/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	sourceID, action := parts[0], parts[1]
	switch action {
	case "quality":
		h.handleGetQuality(w, r, sourceID)
	case "scrapes":
		h.handlePostScrape(w, r, sourceID)
	default:
		http.NotFound(w, r)
	}
}

func (h *SourcesHandler) handleGetQuality(w http.ResponseWriter, r *http.Request, sourceID string) {
	const op = "api.get_source_quality"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	src, alerts, err := h.deps.SourceQuality(r.Context(), sourceID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	resp := qualityResponse{
		SourceID:         src.ID,
		Name:             src.Name,
		CityID:           src.CityID,
		Active:           src.Active,
		DataQualityScore: src.DataQualityScore,
		Tier:             string(src.Tier),
		Health: scraperHealthResponse{
			ConsecutiveFailures: src.Health.ConsecutiveFailures,
			TotalRuns:           src.Health.TotalRuns,
			SuccessRate:         src.Health.SuccessRate,
			LastSuccessAt:       src.Health.LastSuccessAt,
			NeedsRegeneration:   src.Health.NeedsRegeneration,
		},
		Alerts: make([]alertResponse, 0, len(alerts)),
	}
	for _, a := range alerts {
		resp.Alerts = append(resp.Alerts, alertResponse{
			ID:        a.ID,
			Type:      string(a.Type),
			Severity:  string(a.Severity),
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SourcesHandler) handlePostScrape(w http.ResponseWriter, r *http.Request, sourceID string) {
	const op = "api.post_scrape_outcome"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scrapeOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.RecordScrapeOutcome(r.Context(), sourceID, req.Succeeded); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}
