// Package repository defines the session store interface and its SQLite
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/campsift/internal/domain/model"
)

// Store provides read/write access to persisted sessions, sources, and
// data quality alerts. Every write is atomic at single-record granularity:
// all derived fields for one record commit together or not at all.
type Store interface {
	// UpsertSession inserts or replaces one session row.
	UpsertSession(ctx context.Context, s model.Session) error

	// Session returns one session by id.
	// Returns ErrNotFound if the id is unknown.
	Session(ctx context.Context, id string) (model.Session, error)

	// DeleteSessions removes the given session rows in one transaction.
	DeleteSessions(ctx context.Context, ids []string) error

	// SessionsBySource returns all sessions attributed to a source.
	SessionsBySource(ctx context.Context, sourceID string) ([]model.Session, error)

	// SessionsByCity returns all sessions in a city.
	SessionsByCity(ctx context.Context, cityID string) ([]model.Session, error)

	// CountSessions returns the total number of session rows.
	CountSessions(ctx context.Context) (int, error)

	// UpsertSource inserts a source or updates its identity fields
	// (name, city, active, scraper_configured). Derived quality and
	// scrape health columns are preserved on conflict.
	UpsertSource(ctx context.Context, s model.Source) error

	// Source returns one source by id.
	// Returns ErrNotFound if the id is unknown.
	Source(ctx context.Context, id string) (model.Source, error)

	// ActiveSourcesPage returns up to limit active sources with ids after
	// the cursor, ordered by id. An empty cursor starts from the beginning.
	ActiveSourcesPage(ctx context.Context, afterID string, limit int) ([]model.Source, error)

	// CityIDsPage returns up to limit distinct city ids with sessions,
	// after the cursor, ordered.
	CityIDsPage(ctx context.Context, afterID string, limit int) ([]string, error)

	// UpdateSourceQuality writes the derived quality score and tier.
	UpdateSourceQuality(ctx context.Context, sourceID string, score int, tier model.Tier) error

	// RecordScrapeOutcome folds one scrape run into the source's health.
	RecordScrapeOutcome(ctx context.Context, sourceID string, succeeded bool, at time.Time) error

	// InsertAlertIfAbsent creates an alert unless an equivalent open alert
	// already exists for the same source and type. Returns true if a row
	// was inserted.
	InsertAlertIfAbsent(ctx context.Context, a model.Alert) (bool, error)

	// OpenAlerts returns the open alerts for a source.
	OpenAlerts(ctx context.Context, sourceID string) ([]model.Alert, error)
}
