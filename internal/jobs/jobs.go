// Package jobs implements the batch maintenance jobs run against the
// session store: within-source duplicate merging, cross-source duplicate
// scanning, and the data quality check. All jobs are cursor-paged and
// idempotent so a crashed run can resume where it stopped.
package jobs

import (
	"time"

	"github.com/okian/campsift/internal/adapters/repository"
	"github.com/okian/campsift/pkg/logger"
)

// Default job configuration constants.
const (
	defaultBatchSize            = 100
	defaultCrossSourceThreshold = 0.85
	defaultLowQualityThreshold  = 50
	defaultStaleAfter           = 7 * 24 * time.Hour
	defaultZeroPriceRatio       = 0.30
	defaultZeroPriceMinActives  = 5
	cityScanConcurrency         = 4
)

// Options controls a single job invocation. DryRun reports what would
// change without writing; callers that want mutation must opt in
// explicitly. A zero BatchSize uses the default.
type Options struct {
	DryRun    bool   `json:"dry_run"`
	BatchSize int    `json:"batch_size"`
	Cursor    string `json:"cursor"`
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	return o
}

// RowError records one record-level failure inside a batch. Jobs keep
// going after row errors; the report carries them out.
type RowError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Report summarizes one job invocation. A non-empty NextCursor means the
// scan did not finish; pass it back in the next call's Options to resume.
type Report struct {
	Job        string     `json:"job"`
	Scanned    int        `json:"scanned"`
	Affected   int        `json:"affected"`
	DryRun     bool       `json:"dry_run"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Errors     []RowError `json:"errors,omitempty"`
}

func (r *Report) addError(id string, err error) {
	r.Errors = append(r.Errors, RowError{ID: id, Message: err.Error()})
}

// Runner executes maintenance jobs against a store.
type Runner struct {
	store repository.Store

	crossSourceThreshold float64
	lowQualityThreshold  int
	staleAfter           time.Duration
	zeroPriceRatio       float64
	zeroPriceMinActives  int

	now func() time.Time

	logger logger.Logger
}

// NewRunner creates a job runner with configuration options.
func NewRunner(store repository.Store, opts ...Option) *Runner {
	r := &Runner{
		store:                store,
		crossSourceThreshold: defaultCrossSourceThreshold,
		lowQualityThreshold:  defaultLowQualityThreshold,
		staleAfter:           defaultStaleAfter,
		zeroPriceRatio:       defaultZeroPriceRatio,
		zeroPriceMinActives:  defaultZeroPriceMinActives,
		now:                  time.Now,
		logger:               logger.Get().Named("jobs"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// trackDuration is a defer helper recording how long one job batch took.
func trackDuration(job string, record func(string, float64)) func() {
	start := time.Now()
	return func() {
		record(job, float64(time.Since(start).Milliseconds()))
	}
}
