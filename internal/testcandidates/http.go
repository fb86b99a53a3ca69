package testcandidates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/campsift/internal/domain/model"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// send performs a request with a JSON body
func (c *HTTPClient) send(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, url, body)
}

// Put performs a PUT request with JSON body
func (c *HTTPClient) Put(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, url, body)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerSources registers the synthetic sources the candidates refer to.
func registerSources(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/sources"

	for i := 0; i < config.NumSources; i++ {
		id := "load-src-" + strconv.Itoa(i+1)
		body := map[string]interface{}{
			"id":                 id,
			"name":               "Load Source " + strconv.Itoa(i+1),
			"city_id":            "load-city-1",
			"active":             true,
			"scraper_configured": true,
		}
		resp, err := client.Put(ctx, url, body)
		if err != nil {
			return fmt.Errorf("failed to register source %s: %w", id, err)
		}
		_, _ = readResponseBody(resp)
		if resp.StatusCode != StatusOK {
			return fmt.Errorf("source registration for %s failed with status: %d", id, resp.StatusCode)
		}
		stats.SourcesRegistered++
	}

	log.Printf("Registered %d sources", stats.SourcesRegistered)
	return nil
}

// submitCandidates submits candidates concurrently using worker pools
func submitCandidates(ctx context.Context, config *Config, candidates []model.Candidate, stats *Stats) error {
	log.Printf("Submitting %d candidates with %d workers...", len(candidates), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/candidates"

	// Counters for statistics
	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	candidateChan := make(chan model.Candidate, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for c := range candidateChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleCandidate(ctx, client, url, c)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("Progress: %d/%d submitted (accepted: %d, duplicate: %d, failed: %d)",
								total, len(candidates), acc, dup, fail)
						} else {
							fmt.Printf("\rSubmitted: %d/%d (accepted: %d, duplicate: %d, failed: %d)",
								total, len(candidates), acc, dup, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send candidates to workers
	go func() {
		defer close(candidateChan)
		for _, c := range candidates {
			select {
			case <-ctx.Done():
				return
			case candidateChan <- c:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.CandidatesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.CandidatesAccepted = int(atomic.LoadInt64(&accepted))
	stats.CandidatesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.CandidatesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Candidate submission completed:
   Accepted: %d
   Duplicate: %d
   Failed: %d
`, stats.CandidatesAccepted, stats.CandidatesDuplicate, stats.CandidatesFailed)

	return nil
}

// submitSingleCandidate submits a single candidate and returns the result
func submitSingleCandidate(ctx context.Context, client *HTTPClient, url string, c model.Candidate) string {
	resp, err := client.Post(ctx, url, c)
	if err != nil {
		return "failed"
	}

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	// Parse response based on status code
	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "accepted" {
			return "accepted"
		}
		return "accepted" // Assume accepted for 202 even if parsing fails
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		return "failed"
	}
}
