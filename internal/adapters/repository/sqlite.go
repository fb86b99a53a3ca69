package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/pkg/metrics"

	_ "modernc.org/sqlite"
)

// needsRegenerationAfter marks a source's scraper as broken once this many
// consecutive runs have failed.
const needsRegenerationAfter = 3

const schema = `
CREATE TABLE IF NOT EXISTS sources (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  city_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  scraper_configured INTEGER NOT NULL DEFAULT 0,
  data_quality_score INTEGER NOT NULL DEFAULT 0,
  tier TEXT NOT NULL DEFAULT 'low',
  consecutive_failures INTEGER NOT NULL DEFAULT 0,
  total_runs INTEGER NOT NULL DEFAULT 0,
  success_rate REAL NOT NULL DEFAULT 0,
  last_success_at TEXT,
  needs_regeneration INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  source_id TEXT NOT NULL,
  city_id TEXT NOT NULL,
  organization_id TEXT,
  camp_id TEXT,
  camp_name TEXT,
  organization_name TEXT,
  name TEXT NOT NULL,
  status TEXT NOT NULL,
  start_date TEXT,
  end_date TEXT,
  flexible_dates INTEGER NOT NULL DEFAULT 0,
  date_text TEXT,
  drop_off_hour INTEGER,
  drop_off_minute INTEGER,
  pick_up_hour INTEGER,
  pick_up_minute INTEGER,
  location TEXT,
  min_age INTEGER,
  max_age INTEGER,
  min_grade INTEGER,
  max_grade INTEGER,
  price_cents INTEGER,
  price_text TEXT,
  registration_url TEXT,
  categories TEXT,
  completeness_score INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source_id);
CREATE INDEX IF NOT EXISTS idx_sessions_city ON sessions(city_id);

CREATE TABLE IF NOT EXISTS alerts (
  id TEXT PRIMARY KEY,
  source_id TEXT NOT NULL,
  alert_type TEXT NOT NULL,
  severity TEXT NOT NULL,
  message TEXT NOT NULL,
  open INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_source_open ON alerts(source_id, alert_type, open);
`

const sessionColumns = `id, source_id, city_id, organization_id, camp_id, camp_name,
organization_name, name, status, start_date, end_date, flexible_dates, date_text,
drop_off_hour, drop_off_minute, pick_up_hour, pick_up_minute, location,
min_age, max_age, min_grade, max_grade, price_cents, price_text,
registration_url, categories, completeness_score, created_at, updated_at`

// SQLiteStore implements Store on an embedded SQLite database. SQLite's
// per-statement transactionality gives the required atomic single-record
// writes; multi-row mutations use explicit transactions.
type SQLiteStore struct {
	db          *sql.DB
	maxPageSize int
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The modernc driver serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:          db,
		maxPageSize: defaultMaxPageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// UpsertSession inserts or replaces one session row.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sess model.Session) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	categories, err := json.Marshal(sess.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	const stmt = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  source_id=excluded.source_id,
  city_id=excluded.city_id,
  organization_id=excluded.organization_id,
  camp_id=excluded.camp_id,
  camp_name=excluded.camp_name,
  organization_name=excluded.organization_name,
  name=excluded.name,
  status=excluded.status,
  start_date=excluded.start_date,
  end_date=excluded.end_date,
  flexible_dates=excluded.flexible_dates,
  date_text=excluded.date_text,
  drop_off_hour=excluded.drop_off_hour,
  drop_off_minute=excluded.drop_off_minute,
  pick_up_hour=excluded.pick_up_hour,
  pick_up_minute=excluded.pick_up_minute,
  location=excluded.location,
  min_age=excluded.min_age,
  max_age=excluded.max_age,
  min_grade=excluded.min_grade,
  max_grade=excluded.max_grade,
  price_cents=excluded.price_cents,
  price_text=excluded.price_text,
  registration_url=excluded.registration_url,
  categories=excluded.categories,
  completeness_score=excluded.completeness_score,
  updated_at=excluded.updated_at;
`
	var dropOff, pickUp [2]any
	if sess.DropOff != nil {
		dropOff[0], dropOff[1] = sess.DropOff.Hour, sess.DropOff.Minute
	}
	if sess.PickUp != nil {
		pickUp[0], pickUp[1] = sess.PickUp.Hour, sess.PickUp.Minute
	}

	_, err = s.db.ExecContext(ctx, stmt,
		sess.ID, sess.SourceID, sess.CityID, sess.OrganizationID, sess.CampID,
		sess.CampName, sess.OrganizationName, sess.Name, string(sess.Status),
		nullTime(sess.Dates.Start), nullTime(sess.Dates.End), boolInt(sess.Dates.Flexible), sess.DateText,
		dropOff[0], dropOff[1], pickUp[0], pickUp[1], sess.Location,
		nullIntPtr(sess.Ages.MinAge), nullIntPtr(sess.Ages.MaxAge),
		nullIntPtr(sess.Ages.MinGrade), nullIntPtr(sess.Ages.MaxGrade),
		nullIntPtr(sess.PriceCents), sess.PriceText,
		sess.RegistrationURL, string(categories), sess.CompletenessScore,
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Session returns one session by id.
func (s *SQLiteStore) Session(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	return sess, nil
}

// DeleteSessions removes the given session rows in one transaction.
func (s *SQLiteStore) DeleteSessions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholdersSQL := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id IN (`+placeholdersSQL+`)`, args...); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// SessionsBySource returns all sessions attributed to a source.
func (s *SQLiteStore) SessionsBySource(ctx context.Context, sourceID string) ([]model.Session, error) {
	return s.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE source_id = ? ORDER BY id`, sourceID)
}

// SessionsByCity returns all sessions in a city.
func (s *SQLiteStore) SessionsByCity(ctx context.Context, cityID string) ([]model.Session, error) {
	return s.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE city_id = ? ORDER BY id`, cityID)
}

// CountSessions returns the total number of session rows.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// UpsertSource inserts a source or updates its identity fields. On
// conflict only name, city, active and scraper_configured change; the
// derived quality columns and scrape health history stay as they are, so
// a scraper re-registering its source cannot wipe them.
func (s *SQLiteStore) UpsertSource(ctx context.Context, src model.Source) error {
	const stmt = `
INSERT INTO sources (id, name, city_id, active, scraper_configured, data_quality_score, tier,
  consecutive_failures, total_runs, success_rate, last_success_at, needs_regeneration,
  created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  city_id=excluded.city_id,
  active=excluded.active,
  scraper_configured=excluded.scraper_configured,
  updated_at=excluded.updated_at;
`
	var lastSuccess any
	if src.Health.LastSuccessAt != nil {
		lastSuccess = src.Health.LastSuccessAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, stmt,
		src.ID, src.Name, src.CityID, boolInt(src.Active), boolInt(src.ScraperConfigured),
		src.DataQualityScore, string(src.Tier),
		src.Health.ConsecutiveFailures, src.Health.TotalRuns, src.Health.SuccessRate,
		lastSuccess, boolInt(src.Health.NeedsRegeneration),
		src.CreatedAt.UTC().Format(time.RFC3339), src.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

// Source returns one source by id.
func (s *SQLiteStore) Source(ctx context.Context, id string) (model.Source, error) {
	row := s.db.QueryRowContext(ctx, sourceSelect+` WHERE id = ?`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, ErrNotFound
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("query source: %w", err)
	}
	return src, nil
}

// ActiveSourcesPage returns up to limit active sources after the cursor.
func (s *SQLiteStore) ActiveSourcesPage(ctx context.Context, afterID string, limit int) ([]model.Source, error) {
	if limit <= 0 || limit > s.maxPageSize {
		return nil, ErrInvalidPageSize
	}

	rows, err := s.db.QueryContext(ctx,
		sourceSelect+` WHERE active = 1 AND id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sources page: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// CityIDsPage returns up to limit distinct city ids with sessions, after
// the cursor.
func (s *SQLiteStore) CityIDsPage(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 || limit > s.maxPageSize {
		return nil, ErrInvalidPageSize
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT city_id FROM sessions WHERE city_id > ? ORDER BY city_id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query city page: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan city id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cities: %w", err)
	}
	return out, nil
}

// UpdateSourceQuality writes the derived quality score and tier.
func (s *SQLiteStore) UpdateSourceQuality(ctx context.Context, sourceID string, score int, tier model.Tier) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET data_quality_score = ?, tier = ?, updated_at = ? WHERE id = ?`,
		score, string(tier), time.Now().UTC().Format(time.RFC3339), sourceID)
	if err != nil {
		return fmt.Errorf("update source quality: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordScrapeOutcome folds one scrape run into the source's health block.
func (s *SQLiteStore) RecordScrapeOutcome(ctx context.Context, sourceID string, succeeded bool, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin health update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var failures, runs int
	var rate float64
	row := tx.QueryRowContext(ctx,
		`SELECT consecutive_failures, total_runs, success_rate FROM sources WHERE id = ?`, sourceID)
	if err := row.Scan(&failures, &runs, &rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("read source health: %w", err)
	}

	successes := rate * float64(runs)
	runs++
	if succeeded {
		failures = 0
		successes++
	} else {
		failures++
	}
	rate = successes / float64(runs)
	needsRegeneration := failures >= needsRegenerationAfter

	var lastSuccess any
	if succeeded {
		lastSuccess = at.UTC().Format(time.RFC3339)
	}
	const stmt = `
UPDATE sources SET
  consecutive_failures = ?,
  total_runs = ?,
  success_rate = ?,
  last_success_at = COALESCE(?, last_success_at),
  needs_regeneration = ?,
  updated_at = ?
WHERE id = ?`
	if _, err := tx.ExecContext(ctx, stmt,
		failures, runs, rate, lastSuccess, boolInt(needsRegeneration),
		time.Now().UTC().Format(time.RFC3339), sourceID); err != nil {
		return fmt.Errorf("write source health: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit health update: %w", err)
	}
	return nil
}

// InsertAlertIfAbsent creates an alert unless an equivalent open alert
// already exists for the same source and type.
func (s *SQLiteStore) InsertAlertIfAbsent(ctx context.Context, a model.Alert) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin alert insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	row := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE source_id = ? AND alert_type = ? AND open = 1`,
		a.SourceID, string(a.Type))
	if err := row.Scan(&existing); err != nil {
		return false, fmt.Errorf("check open alerts: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO alerts (id, source_id, alert_type, severity, message, open, created_at) VALUES (?, ?, ?, ?, ?, 1, ?)`,
		a.ID, a.SourceID, string(a.Type), string(a.Severity), a.Message,
		a.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit alert insert: %w", err)
	}
	return true, nil
}

// OpenAlerts returns the open alerts for a source.
func (s *SQLiteStore) OpenAlerts(ctx context.Context, sourceID string) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, alert_type, severity, message, open, created_at FROM alerts
		 WHERE source_id = ? AND open = 1 ORDER BY created_at`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		var alertType, severity, createdAt string
		var open int
		if err := rows.Scan(&a.ID, &a.SourceID, &alertType, &severity, &a.Message, &open, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = model.AlertType(alertType)
		a.Severity = model.Severity(severity)
		a.Open = open != 0
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

const sourceSelect = `SELECT id, name, city_id, active, scraper_configured, data_quality_score, tier,
consecutive_failures, total_runs, success_rate, last_success_at, needs_regeneration,
created_at, updated_at FROM sources`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (model.Session, error) {
	var s model.Session
	var status, categories string
	var startDate, endDate, dateText, location, priceText, regURL sql.NullString
	var orgID, campID, campName, orgName sql.NullString
	var flexible int
	var dropHour, dropMinute, pickHour, pickMinute sql.NullInt64
	var minAge, maxAge, minGrade, maxGrade, priceCents sql.NullInt64
	var createdAt, updatedAt string

	err := r.Scan(&s.ID, &s.SourceID, &s.CityID, &orgID, &campID, &campName, &orgName,
		&s.Name, &status, &startDate, &endDate, &flexible, &dateText,
		&dropHour, &dropMinute, &pickHour, &pickMinute, &location,
		&minAge, &maxAge, &minGrade, &maxGrade, &priceCents, &priceText,
		&regURL, &categories, &s.CompletenessScore, &createdAt, &updatedAt)
	if err != nil {
		return model.Session{}, err
	}

	s.OrganizationID = orgID.String
	s.CampID = campID.String
	s.CampName = campName.String
	s.OrganizationName = orgName.String
	s.Status = model.Status(status)
	s.Dates.Start = parseTime(startDate)
	s.Dates.End = parseTime(endDate)
	s.Dates.Flexible = flexible != 0
	s.DateText = dateText.String
	if dropHour.Valid {
		s.DropOff = &model.TimeOfDay{Hour: int(dropHour.Int64), Minute: int(dropMinute.Int64)}
	}
	if pickHour.Valid {
		s.PickUp = &model.TimeOfDay{Hour: int(pickHour.Int64), Minute: int(pickMinute.Int64)}
	}
	s.Location = location.String
	s.Ages.MinAge = intPtrFromNull(minAge)
	s.Ages.MaxAge = intPtrFromNull(maxAge)
	s.Ages.MinGrade = intPtrFromNull(minGrade)
	s.Ages.MaxGrade = intPtrFromNull(maxGrade)
	s.PriceCents = intPtrFromNull(priceCents)
	s.PriceText = priceText.String
	s.RegistrationURL = regURL.String
	if categories != "" && categories != "null" {
		_ = json.Unmarshal([]byte(categories), &s.Categories)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return s, nil
}

func scanSource(r rowScanner) (model.Source, error) {
	var src model.Source
	var active, configured, needsRegeneration int
	var tier string
	var lastSuccess sql.NullString
	var createdAt, updatedAt string

	err := r.Scan(&src.ID, &src.Name, &src.CityID, &active, &configured,
		&src.DataQualityScore, &tier,
		&src.Health.ConsecutiveFailures, &src.Health.TotalRuns, &src.Health.SuccessRate,
		&lastSuccess, &needsRegeneration, &createdAt, &updatedAt)
	if err != nil {
		return model.Source{}, err
	}

	src.Active = active != 0
	src.ScraperConfigured = configured != 0
	src.Tier = model.Tier(tier)
	if lastSuccess.Valid {
		if t, perr := time.Parse(time.RFC3339, lastSuccess.String); perr == nil {
			src.Health.LastSuccessAt = &t
		}
	}
	src.Health.NeedsRegeneration = needsRegeneration != 0
	src.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	src.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return src, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullIntPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtrFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}
