// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/campsift/internal/jobs"
)

// MaintenanceHandler triggers one page of a maintenance job on demand.
// Requests default to a dry run; mutation requires "dry_run": false in the
// body.
type MaintenanceHandler struct {
	deps Dependencies
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(deps Dependencies) *MaintenanceHandler {
	return &MaintenanceHandler{deps: deps}
}

// jobRequest mirrors jobs.Options for POST /maintenance/{job}. DryRun is a
// pointer so an absent field defaults to true.
type jobRequest struct {
	DryRun    *bool  `json:"dry_run"`
	BatchSize int    `json:"batch_size"`
	Cursor    string `json:"cursor"`
}

func (j jobRequest) options() jobs.Options {
	dry := true
	if j.DryRun != nil {
		dry = *j.DryRun
	}
	return jobs.Options{DryRun: dry, BatchSize: j.BatchSize, Cursor: j.Cursor}
}

// HandlePostJob handles POST /maintenance/{dedupe,cross-source-scan,quality-check}.
func (h *MaintenanceHandler) HandlePostJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_maintenance"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	job := strings.TrimPrefix(r.URL.Path, "/maintenance/")
	if job == "" || strings.Contains(job, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	opts := req.options()

	var (
		report jobs.Report
		err    error
	)
	switch job {
	case "dedupe":
		report, err = h.deps.RunWithinSourceMerge(r.Context(), opts)
	case "cross-source-scan":
		report, err = h.deps.RunCrossSourceScan(r.Context(), opts)
	case "quality-check":
		report, err = h.deps.RunQualityCheck(r.Context(), opts)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
