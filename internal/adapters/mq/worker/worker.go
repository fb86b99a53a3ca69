// Package worker defines worker contracts for asynchronous candidate
// validation and persistence.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/domain/status"
	"github.com/okian/campsift/internal/domain/validate"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 20 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Candidate abstracts what workers read off the queue.
// Using the model.Candidate type for consistency.
type Candidate = model.Candidate

// Persister writes validated sessions to durable storage.
type Persister interface {
	UpsertSession(ctx context.Context, s model.Session) error
}

// Queue defines how workers receive candidates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Candidate
}

// Worker validates candidates and persists the resulting sessions.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining candidates before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing candidates.
type InMemoryWorker struct {
	queue       Queue
	persister   Persister
	name        string
	onProcessed func()

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, persister Persister, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		persister: persister,
		name:      "worker", // default name
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	candidateChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case candidate, ok := <-candidateChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			// Process the candidate
			if err := w.processCandidate(ctx, candidate); err != nil {
				w.logger.Error(ctx, "error processing candidate", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processCandidate validates a single candidate, resolves its lifecycle
// state, and persists the resulting session. Validation never rejects: even
// an empty candidate becomes a pending_review session.
func (w *InMemoryWorker) processCandidate(ctx context.Context, candidate Candidate) error { //nolint:gocritic // hugeParam: Candidate must be passed by value for channel semantics
	// Track overall processing latency
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	// Track validation latency
	validateStart := time.Now()
	res := validate.Candidate(candidate)
	validateLatency := time.Since(validateStart).Milliseconds()

	metrics.RecordValidationLatency(float64(validateLatency))
	metrics.RecordCompletenessScore(res.CompletenessScore)

	sess := BuildSession(res, time.Now().UTC())
	metrics.RecordSessionStatus(string(sess.Status))

	if err := w.persister.UpsertSession(ctx, sess); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "persist_error")
		w.logger.Error(ctx, "persisting session failed",
			logger.String("sourceID", candidate.SourceID),
			logger.String("name", candidate.Name),
			logger.Error(err),
		)
		return fmt.Errorf("persist session for %q: %w", candidate.Name, err)
	}

	metrics.RecordCandidateIngested()
	if w.onProcessed != nil {
		w.onProcessed()
	}

	for _, fieldErr := range res.Errors {
		w.logger.Warn(ctx, "field quality finding",
			logger.String("sessionID", sess.ID),
			logger.String("field", fieldErr.Field),
			logger.String("finding", fieldErr.Message),
		)
	}

	return nil
}

// BuildSession assembles a persistable session from a validation result.
// The session id is freshly minted; both timestamps start at now.
func BuildSession(res validate.Result, now time.Time) model.Session {
	c := res.Normalized

	sess := model.Session{
		ID:                uuid.NewString(),
		SourceID:          c.SourceID,
		CityID:            c.CityID,
		OrganizationID:    c.OrganizationID,
		CampID:            c.CampID,
		Name:              c.Name,
		DateText:          c.DateText,
		Location:          c.Location,
		PriceText:         c.PriceText,
		RegistrationURL:   c.RegistrationURL,
		Categories:        c.Categories,
		CompletenessScore: res.CompletenessScore,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if c.StartDate != nil {
		sess.Dates.Start = *c.StartDate
	}
	if c.EndDate != nil {
		sess.Dates.End = *c.EndDate
	}
	sess.Dates.Flexible = c.FlexibleDates

	if c.DropOffHour != nil {
		sess.DropOff = &model.TimeOfDay{Hour: *c.DropOffHour}
		if c.DropOffMinute != nil {
			sess.DropOff.Minute = *c.DropOffMinute
		}
	}
	if c.PickUpHour != nil {
		sess.PickUp = &model.TimeOfDay{Hour: *c.PickUpHour}
		if c.PickUpMinute != nil {
			sess.PickUp.Minute = *c.PickUpMinute
		}
	}

	sess.Ages = model.AgeGradeRange{
		MinAge:   c.MinAge,
		MaxAge:   c.MaxAge,
		MinGrade: c.MinGrade,
		MaxGrade: c.MaxGrade,
	}
	sess.PriceCents = c.PriceCents

	sess.Status = status.Resolve(res.CompletenessScore, status.PriceSignal{
		Cents:   c.PriceCents,
		RawText: c.PriceText,
	})

	return sess
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	persister Persister

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Metrics tracking
	processedCount    atomic.Int64
	lastProcessedTime time.Time

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, persister Persister) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		persister:         persister,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			persister,
			WithName("worker-"+strconv.Itoa(i)),
			WithOnProcessed(pool.RecordProcessedMessage),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerIdleCount(0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	// Start metrics updater
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval) // Update metrics every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics publishes the pool throughput since the last tick and
// resets the counter.
func (p *Pool) updateMetrics() {
	now := time.Now()
	timeDiff := now.Sub(p.lastProcessedTime).Seconds()
	if timeDiff > 0 {
		processed := p.processedCount.Swap(0)
		metrics.UpdateWorkerThroughput(float64(processed) / timeDiff)
	}
	p.lastProcessedTime = now
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// RecordProcessedMessage increments the processed candidate count.
func (p *Pool) RecordProcessedMessage() {
	p.processedCount.Add(1)
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new candidates
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
