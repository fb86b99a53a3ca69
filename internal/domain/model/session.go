// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of a persisted session. The three states are
// terminal: nothing transitions automatically without re-validation.
type Status string

// Session lifecycle states.
const (
	StatusActive        Status = "active"
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
)

// Tier buckets a source's average session completeness.
type Tier string

// Source quality tiers.
const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// TimeOfDay is a wall-clock time normalized to 24-hour integers.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// DateRange is a session's calendar span. Flexible marks a whole-season
// range (e.g. "Summer 2026") rather than one concrete week.
type DateRange struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Flexible bool      `json:"flexible"`
}

// AgeGradeRange carries an eligibility requirement in either age or grade
// shape. Nil fields are unset; a populated range is one shape or the other,
// never both.
type AgeGradeRange struct {
	MinAge   *int `json:"min_age,omitempty"`
	MaxAge   *int `json:"max_age,omitempty"`
	MinGrade *int `json:"min_grade,omitempty"`
	MaxGrade *int `json:"max_grade,omitempty"`
}

// IsZero reports whether no bound is set in either shape.
func (r AgeGradeRange) IsZero() bool {
	return r.MinAge == nil && r.MaxAge == nil && r.MinGrade == nil && r.MaxGrade == nil
}

// Candidate is one scraped session as produced by the extractor: some fields
// fully parsed, some only as raw text, some entirely absent. Every field is
// optional; the validator tolerates any subset being missing or malformed.
type Candidate struct {
	SourceID       string `json:"source_id"`
	CityID         string `json:"city_id"`
	OrganizationID string `json:"organization_id"`
	CampID         string `json:"camp_id"`

	Name string `json:"name"`

	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	DateText      string     `json:"date_text,omitempty"`
	FlexibleDates bool       `json:"flexible_dates,omitempty"`

	DropOffHour   *int   `json:"drop_off_hour,omitempty"`
	DropOffMinute *int   `json:"drop_off_minute,omitempty"`
	PickUpHour    *int   `json:"pick_up_hour,omitempty"`
	PickUpMinute  *int   `json:"pick_up_minute,omitempty"`
	TimeText      string `json:"time_text,omitempty"`

	Location string `json:"location,omitempty"`

	MinAge   *int   `json:"min_age,omitempty"`
	MaxAge   *int   `json:"max_age,omitempty"`
	MinGrade *int   `json:"min_grade,omitempty"`
	MaxGrade *int   `json:"max_grade,omitempty"`
	AgeText  string `json:"age_text,omitempty"`

	PriceCents *int   `json:"price_cents,omitempty"`
	PriceText  string `json:"price_text,omitempty"`

	RegistrationURL string   `json:"registration_url,omitempty"`
	Categories      []string `json:"categories,omitempty"`
}

// Session is one validated, persisted camp session row.
type Session struct {
	ID             string
	SourceID       string
	CityID         string
	OrganizationID string
	CampID         string

	// Denormalized display fields.
	CampName         string
	OrganizationName string

	Name   string
	Status Status

	Dates    DateRange
	DateText string

	DropOff *TimeOfDay
	PickUp  *TimeOfDay

	Location string
	Ages     AgeGradeRange

	PriceCents *int
	PriceText  string

	RegistrationURL string
	Categories      []string

	CompletenessScore int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasDates reports whether a concrete parsed date range is present.
func (s Session) HasDates() bool {
	return !s.Dates.Start.IsZero() && !s.Dates.End.IsZero()
}

// ScraperHealth tracks how a source's scraper has been behaving. The data
// quality monitor reads it; the ingest layer updates it per scrape run.
type ScraperHealth struct {
	ConsecutiveFailures int
	TotalRuns           int
	SuccessRate         float64
	LastSuccessAt       *time.Time
	NeedsRegeneration   bool
}

// Source is an aggregation root over the sessions scraped from one website
// or feed.
type Source struct {
	ID                string
	Name              string
	CityID            string
	Active            bool
	ScraperConfigured bool

	DataQualityScore int
	Tier             Tier

	Health ScraperHealth

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AlertType identifies one class of data quality problem.
type AlertType string

// Alert types raised by the quality monitor and the cross-source scan.
const (
	AlertMissingScraper    AlertType = "missing_scraper"
	AlertLowQuality        AlertType = "low_quality"
	AlertStaleScrape       AlertType = "stale_scrape"
	AlertNeverSucceeded    AlertType = "never_succeeded"
	AlertZeroPriceActives  AlertType = "zero_price_actives"
	AlertPossibleDuplicate AlertType = "possible_duplicate"
)

// Severity grades an alert.
type Severity string

// Alert severities.
const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is one open data quality finding for a source. Creation is
// idempotent: no new alert is inserted while an equivalent open alert exists
// for the same source and type.
type Alert struct {
	ID        string
	SourceID  string
	Type      AlertType
	Severity  Severity
	Message   string
	Open      bool
	CreatedAt time.Time
}
