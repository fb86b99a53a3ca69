package testcandidates

import "time"

// Config holds configuration for the candidate load test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumCandidates int           // Number of candidates to generate
	NumSources    int           // Number of synthetic sources to register
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for candidates
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// AckResponse represents the response from candidate submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// QualityReport mirrors the read shape of GET /sources/{id}/quality
type QualityReport struct {
	SourceID         string `json:"source_id"`
	Name             string `json:"name"`
	DataQualityScore int    `json:"data_quality_score"`
	Tier             string `json:"tier"`
}

// Stats holds test statistics
type Stats struct {
	SourcesRegistered   int
	CandidatesGenerated int
	CandidatesSubmitted int
	CandidatesAccepted  int
	CandidatesDuplicate int
	CandidatesFailed    int
	SessionsPersisted   int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
