package testcandidates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete candidate load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting campsift candidate load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("candidates", config.NumCandidates),
		logger.Int("sources", config.NumSources),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Register the synthetic sources
	if err := registerSources(ctx, config, stats); err != nil {
		return fmt.Errorf("source registration failed: %w", err)
	}

	// Step 3: Generate candidates
	candidates, err := generateCandidates(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("candidate generation failed: %w", err)
	}

	// Step 4: Submit candidates concurrently
	if err := submitCandidates(ctx, config, candidates, stats); err != nil {
		return fmt.Errorf("candidate submission failed: %w", err)
	}

	// Step 5: Wait for processing
	logger.Get().Info(ctx, "waiting for candidates to be processed")
	time.Sleep(ProcessingDelay)

	// Step 6: Verify persisted sessions and per-source quality
	if err := verifyResults(ctx, config, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save candidates to file
	if err := saveCandidatesToFile(ctx, config, candidates); err != nil {
		logger.Get().Warn(ctx, "failed to save candidates to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveCandidatesToFile saves the generated candidates to a JSON file.
func saveCandidatesToFile(ctx context.Context, config *Config, candidates []model.Candidate) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_candidates_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write candidates to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, c := range candidates {
		jsonData, err := marshalJSON(c)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write candidate %d: %w", i, err)
		}

		// Add comma except for last candidate
		if i < len(candidates)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "candidates saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, candidatesPerSecond float64

	if stats.CandidatesSubmitted > 0 {
		acceptRate = float64(stats.CandidatesAccepted) / float64(stats.CandidatesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		candidatesPerSecond = float64(stats.CandidatesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sourcesRegistered", stats.SourcesRegistered),
		logger.Int("candidatesGenerated", stats.CandidatesGenerated),
		logger.Int("candidatesSubmitted", stats.CandidatesSubmitted),
		logger.Int("candidatesAccepted", stats.CandidatesAccepted),
		logger.Int("candidatesDuplicate", stats.CandidatesDuplicate),
		logger.Int("candidatesFailed", stats.CandidatesFailed),
		logger.Int("sessionsPersisted", stats.SessionsPersisted),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("candidatesPerSecond", candidatesPerSecond))
}
