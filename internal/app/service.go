// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	candidatequeue "github.com/okian/campsift/internal/adapters/mq/queue"
	workerpool "github.com/okian/campsift/internal/adapters/mq/worker"
	repository "github.com/okian/campsift/internal/adapters/repository"
	"github.com/okian/campsift/internal/domain/dedupe"
	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/jobs"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize   = 100000
	defaultTrackerSize = 50000
	defaultDBPath      = "campsift.db"
)

// Service implements the API dependencies for the listing engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store          repository.Store
	tracker        dedupe.Tracker
	candidateQueue candidatequeue.Queue
	workerPool     *workerpool.Pool
	runner         *jobs.Runner

	// Configuration
	workerCount          int
	queueSize            int
	trackerSize          int
	dbPath               string
	crossSourceThreshold float64
	lowQualityThreshold  int
	staleAfter           time.Duration

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the candidate queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTrackerSize sets the size of the ingest idempotency cache.
func WithTrackerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.trackerSize = size
		}
	}
}

// WithDBPath sets the SQLite database location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithCrossSourceThreshold sets the similarity threshold for the
// cross-source duplicate scan.
func WithCrossSourceThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.crossSourceThreshold = threshold
		}
	}
}

// WithLowQualityThreshold sets the completeness score below which the
// quality check raises a low_quality alert.
func WithLowQualityThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.lowQualityThreshold = threshold
		}
	}
}

// WithStaleAfter sets how long without a successful scrape marks a source
// stale in the quality check.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:          runtime.NumCPU() * 2, // Default to 2x CPU cores
		queueSize:            defaultQueueSize,
		trackerSize:          defaultTrackerSize,
		dbPath:               defaultDBPath,
		crossSourceThreshold: 0, // runner default applies
		stopCh:               make(chan struct{}),
		logger:               nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting listing engine...")

	// Initialize components
	store, err := repository.NewSQLiteStore(ctx, s.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store

	s.tracker = dedupe.NewTracker(
		dedupe.WithMaxSize(s.trackerSize),
	)
	s.candidateQueue = candidatequeue.NewInMemoryQueue(
		candidatequeue.WithCapacity(s.queueSize),
		candidatequeue.WithBufferSize(s.queueSize),
	)

	runnerOpts := []jobs.Option{jobs.WithLogger(s.logger.Named("jobs"))}
	if s.crossSourceThreshold > 0 {
		runnerOpts = append(runnerOpts, jobs.WithCrossSourceThreshold(s.crossSourceThreshold))
	}
	if s.lowQualityThreshold > 0 {
		runnerOpts = append(runnerOpts, jobs.WithLowQualityThreshold(s.lowQualityThreshold))
	}
	if s.staleAfter > 0 {
		runnerOpts = append(runnerOpts, jobs.WithStaleAfter(s.staleAfter))
	}
	s.runner = jobs.NewRunner(s.store, runnerOpts...)

	// Create and start worker pool
	s.workerPool = workerpool.NewPool(s.workerCount, s.candidateQueue, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "listing engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("trackerSize", s.trackerSize),
		logger.String("db", s.dbPath),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping listing engine...")

	// Stop worker pool
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Close queue
	if q, ok := s.candidateQueue.(*candidatequeue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Close store
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "listing engine stopped")
}

// ingestKey derives the idempotency key for one scraped candidate. A
// parsed start date yields the same key the merge job uses; otherwise the
// raw date text stands in so re-scrapes of the same unparsed listing still
// collapse.
func ingestKey(c model.Candidate) string {
	if c.StartDate != nil {
		return dedupe.Key(c.SourceID, c.Name, *c.StartDate)
	}
	return c.SourceID + ":" + dedupe.NormalizeName(c.Name) + ":" + c.DateText
}

// IngestCandidate accepts one scraped candidate for asynchronous
// validation. Returns (true, true) for an already-seen candidate, which
// callers treat as success; (false, false) means the queue is full.
func (s *Service) IngestCandidate(ctx context.Context, c model.Candidate) (accepted, duplicate bool) {
	key := ingestKey(c)

	if s.tracker.SeenAndRecord(ctx, key) {
		metrics.RecordCandidateDuplicate()
		s.logger.Debug(ctx, "duplicate candidate skipped",
			logger.String("key", key),
			logger.String("sourceID", c.SourceID),
		)
		return true, true
	}

	if !s.candidateQueue.Enqueue(ctx, c) {
		// Give the candidate another chance on retry.
		s.tracker.Unrecord(ctx, key)
		metrics.RecordCandidateRejected()
		return false, false
	}

	metrics.UpdateQueueSize(s.candidateQueue.Len(ctx))
	return true, false
}

// Session returns one persisted session by id.
func (s *Service) Session(ctx context.Context, id string) (model.Session, error) {
	return s.store.Session(ctx, id)
}

// UpsertSource registers or updates a scrape source.
func (s *Service) UpsertSource(ctx context.Context, src model.Source) error {
	return s.store.UpsertSource(ctx, src)
}

// SourceQuality returns a source's stored quality state and open alerts.
func (s *Service) SourceQuality(ctx context.Context, sourceID string) (model.Source, []model.Alert, error) {
	src, err := s.store.Source(ctx, sourceID)
	if err != nil {
		return model.Source{}, nil, err
	}
	alerts, err := s.store.OpenAlerts(ctx, sourceID)
	if err != nil {
		return model.Source{}, nil, err
	}
	return src, alerts, nil
}

// RecordScrapeOutcome folds one scrape run into a source's health block.
func (s *Service) RecordScrapeOutcome(ctx context.Context, sourceID string, succeeded bool) error {
	return s.store.RecordScrapeOutcome(ctx, sourceID, succeeded, time.Now().UTC())
}

// RunWithinSourceMerge collapses exact duplicates inside each source.
func (s *Service) RunWithinSourceMerge(ctx context.Context, opts jobs.Options) (jobs.Report, error) {
	return s.runner.WithinSourceMerge(ctx, opts)
}

// RunCrossSourceScan flags probable duplicates across sources.
func (s *Service) RunCrossSourceScan(ctx context.Context, opts jobs.Options) (jobs.Report, error) {
	return s.runner.CrossSourceScan(ctx, opts)
}

// RunQualityCheck recomputes source quality and raises monitor alerts.
func (s *Service) RunQualityCheck(ctx context.Context, opts jobs.Options) (jobs.Report, error) {
	return s.runner.QualityCheck(ctx, opts)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"trackerSize": s.trackerSize,
	}

	if s.started {
		queueLen := s.candidateQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["trackedKeys"] = s.tracker.Size()

		if total, err := s.store.CountSessions(ctx); err == nil {
			stats["totalSessions"] = total
			metrics.UpdateTotalSessions(total)
		}

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of keys in the ingest tracker.
func (s *Service) Size() int64 {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.Size()
}
