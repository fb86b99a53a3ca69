package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/campsift/internal/adapters/http/api"
	"github.com/okian/campsift/internal/adapters/http/site"
	"github.com/okian/campsift/internal/adapters/http/swagger"
	service "github.com/okian/campsift/internal/app"
	"github.com/okian/campsift/internal/config"
	"github.com/okian/campsift/internal/jobs"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	hoursPerDay            = 24
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithTrackerSize(cfg.TrackerSize),
		service.WithDBPath(cfg.DBPath),
		service.WithCrossSourceThreshold(cfg.CrossSourceThreshold),
		service.WithLowQualityThreshold(cfg.LowQualityThreshold),
		service.WithStaleAfter(time.Duration(cfg.StaleAfterDays)*hoursPerDay*time.Hour),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// Start the maintenance job scheduler
	go startJobScheduler(ctx, svc, cfg)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the docs site and API docs
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startJobScheduler runs the maintenance jobs on a fixed interval.
func startJobScheduler(ctx context.Context, svc *service.Service, cfg *config.Config) {
	interval := time.Duration(cfg.JobIntervalHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runMaintenanceJobs(ctx, svc, cfg.BatchSize)
		}
	}
}

// runMaintenanceJobs pages each job to completion, in dependency order:
// within-source merge first so the scan and quality check see collapsed rows.
func runMaintenanceJobs(ctx context.Context, svc *service.Service, batchSize int) {
	log := logger.Get()

	jobRuns := []struct {
		name string
		run  func(context.Context, jobs.Options) (jobs.Report, error)
	}{
		{"within_source_merge", svc.RunWithinSourceMerge},
		{"cross_source_scan", svc.RunCrossSourceScan},
		{"quality_check", svc.RunQualityCheck},
	}

	for _, j := range jobRuns {
		cursor := ""
		for {
			report, err := j.run(ctx, jobs.Options{BatchSize: batchSize, Cursor: cursor})
			if err != nil {
				log.Error(ctx, "maintenance job failed",
					logger.String("job", j.name), logger.Error(err))
				break
			}
			log.Info(ctx, "maintenance job page done",
				logger.String("job", j.name),
				logger.Int("scanned", report.Scanned),
				logger.Int("affected", report.Affected),
				logger.Int("rowErrors", len(report.Errors)))
			if report.NextCursor == "" {
				break
			}
			cursor = report.NextCursor
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// GetStats refreshes the session, queue and worker gauges as a side
	// effect; pull queue length out explicitly in case the shape changes.
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
