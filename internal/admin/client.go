package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/campsift/internal/jobs"
)

// maxResponseBody caps how much of an API response we read.
const maxResponseBody = 1 << 20

// QualityReport mirrors the quality endpoint's response body.
type QualityReport struct {
	SourceID         string  `json:"source_id"`
	Name             string  `json:"name"`
	CityID           string  `json:"city_id"`
	Active           bool    `json:"active"`
	DataQualityScore int     `json:"data_quality_score"`
	Tier             string  `json:"tier"`
	Health           Health  `json:"health"`
	Alerts           []Alert `json:"alerts"`
}

// Health mirrors the scraper health block of a quality report.
type Health struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalRuns           int        `json:"total_runs"`
	SuccessRate         float64    `json:"success_rate"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	NeedsRegeneration   bool       `json:"needs_regeneration"`
}

// Alert mirrors one open alert of a quality report.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Client talks to a running campsift daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for the daemon at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// RunJob invokes one maintenance job page and returns its report.
func (c *Client) RunJob(ctx context.Context, job string, opts jobs.Options) (jobs.Report, error) {
	var report jobs.Report

	body, err := json.Marshal(opts)
	if err != nil {
		return report, fmt.Errorf("marshaling job options: %w", err)
	}

	if err := c.do(ctx, http.MethodPost, "/maintenance/"+job, body, &report); err != nil {
		return report, err
	}
	return report, nil
}

// Stats fetches the daemon's stats snapshot.
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	var stats map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Quality fetches the quality report for one source.
func (c *Client) Quality(ctx context.Context, sourceID string) (QualityReport, error) {
	var report QualityReport
	if err := c.do(ctx, http.MethodGet, "/sources/"+sourceID+"/quality", nil, &report); err != nil {
		return report, err
	}
	return report, nil
}

// do sends one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
