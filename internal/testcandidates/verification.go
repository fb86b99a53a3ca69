package testcandidates

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
)

// verifyResults checks that submitted candidates became persisted sessions
// and reads back the per-source quality reports.
func verifyResults(ctx context.Context, config *Config, stats *Stats) error {
	log.Println("Verifying results...")

	client := newHTTPClient(config.Timeout)

	// Total sessions from the stats surface.
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read stats response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("stats endpoint failed with status: %d", resp.StatusCode)
	}

	var serviceStats map[string]interface{}
	if err := json.Unmarshal(body, &serviceStats); err != nil {
		return fmt.Errorf("failed to parse stats response: %w", err)
	}
	if total, ok := serviceStats["totalSessions"].(float64); ok {
		stats.SessionsPersisted = int(total)
	}

	log.Printf("Sessions persisted: %d (accepted: %d)", stats.SessionsPersisted, stats.CandidatesAccepted)
	if stats.SessionsPersisted < stats.CandidatesAccepted {
		log.Printf("Warning: %d accepted candidates not yet persisted",
			stats.CandidatesAccepted-stats.SessionsPersisted)
	}

	// Refresh source scores so the reports reflect this run.
	if err := runQualityCheck(ctx, client, config.BaseURL); err != nil {
		log.Printf("Warning: quality check run failed: %v", err)
	}

	// Per-source quality reports.
	for i := 0; i < config.NumSources; i++ {
		id := "load-src-" + strconv.Itoa(i+1)
		report, err := fetchQualityReport(ctx, client, config.BaseURL, id)
		if err != nil {
			log.Printf("Warning: quality report for %s unavailable: %v", id, err)
			continue
		}
		log.Printf("   %s: score %d, tier %s", report.SourceID, report.DataQualityScore, report.Tier)

		if config.Verbose {
			displayQualityDetails(report)
		}
	}

	log.Println("Result verification completed")
	return nil
}

// runQualityCheck pages the quality check job until it reports completion.
func runQualityCheck(ctx context.Context, client *HTTPClient, baseURL string) error {
	cursor := ""
	for {
		body := map[string]interface{}{"dry_run": false, "cursor": cursor}
		resp, err := client.Post(ctx, baseURL+"/maintenance/quality-check", body)
		if err != nil {
			return err
		}
		data, err := readResponseBody(resp)
		if err != nil {
			return err
		}
		if resp.StatusCode != StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		var report struct {
			NextCursor string `json:"next_cursor"`
		}
		if err := json.Unmarshal(data, &report); err != nil {
			return err
		}
		if report.NextCursor == "" {
			return nil
		}
		cursor = report.NextCursor
	}
}

// fetchQualityReport reads one source's quality report.
func fetchQualityReport(ctx context.Context, client *HTTPClient, baseURL, sourceID string) (QualityReport, error) {
	resp, err := client.Get(ctx, baseURL+"/sources/"+sourceID+"/quality")
	if err != nil {
		return QualityReport{}, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return QualityReport{}, err
	}
	if resp.StatusCode != StatusOK {
		return QualityReport{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var report QualityReport
	if err := json.Unmarshal(body, &report); err != nil {
		return QualityReport{}, err
	}
	return report, nil
}

// displayQualityDetails prints the quality report in full.
func displayQualityDetails(report QualityReport) {
	log.Printf(`Quality details for %s:
   Name: %s
   Score: %d
   Tier: %s
`, report.SourceID, report.Name, report.DataQualityScore, report.Tier)
}
