package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/campsift/internal/domain/dedupe"
	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"
)

// CrossSourceScan looks for probable duplicates between different sources
// in the same city: overlapping dates and near-identical names. Matches are
// never merged; each raises a possible_duplicate alert for human review.
// One call processes one page of cities; the cursor walks city ids.
func (r *Runner) CrossSourceScan(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	report := Report{Job: "cross_source_scan", DryRun: opts.DryRun}
	defer trackDuration(report.Job, metrics.RecordJobDuration)()

	cities, err := r.store.CityIDsPage(ctx, opts.Cursor, opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("page cities: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cityScanConcurrency)

	for _, cityID := range cities {
		cityID := cityID
		g.Go(func() error {
			sessions, err := r.store.SessionsByCity(gctx, cityID)
			if err != nil {
				metrics.RecordJobError(report.Job)
				mu.Lock()
				report.addError(cityID, err)
				mu.Unlock()
				return nil
			}

			matches := dedupe.CrossSourceMatches(sessions, r.crossSourceThreshold)
			for _, m := range matches {
				metrics.RecordCrossSourceMatch()

				flagged := 0
				if !opts.DryRun {
					var alertErr error
					flagged, alertErr = r.raiseMatchAlerts(gctx, m)
					if alertErr != nil {
						metrics.RecordJobError(report.Job)
						mu.Lock()
						report.addError(m.A.ID, alertErr)
						mu.Unlock()
						continue
					}
				} else {
					flagged = 1
				}

				mu.Lock()
				report.Affected += flagged
				mu.Unlock()

				r.logger.Info(gctx, "possible cross-source duplicate",
					logger.String("city_id", cityID),
					logger.String("session_a", m.A.ID),
					logger.String("session_b", m.B.ID),
					logger.Float64("similarity", m.Score),
					logger.Any("dry_run", opts.DryRun),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("scan cities: %w", err)
	}

	mu.Lock()
	report.Scanned = len(cities)
	mu.Unlock()

	if len(cities) == opts.BatchSize {
		report.NextCursor = cities[len(cities)-1]
	}
	return report, nil
}

// raiseMatchAlerts opens a possible_duplicate alert on both sources of a
// match. Returns how many alerts were actually inserted; an already-open
// alert on a source suppresses re-insertion.
func (r *Runner) raiseMatchAlerts(ctx context.Context, m dedupe.Match) (int, error) {
	inserted := 0
	for _, pair := range [][2]model.Session{{m.A, m.B}, {m.B, m.A}} {
		alert := model.Alert{
			ID:       uuid.NewString(),
			SourceID: pair[0].SourceID,
			Type:     model.AlertPossibleDuplicate,
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("session %q (%s) likely duplicates %q from source %s",
				pair[0].Name, pair[0].ID, pair[1].Name, pair[1].SourceID),
			CreatedAt: r.now().UTC(),
		}
		created, err := r.store.InsertAlertIfAbsent(ctx, alert)
		if err != nil {
			return inserted, fmt.Errorf("insert duplicate alert: %w", err)
		}
		if created {
			metrics.RecordAlertRaised(string(model.AlertPossibleDuplicate))
			inserted++
		}
	}
	return inserted, nil
}
