package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/domain/quality"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"
)

// QualityCheck recomputes each source's quality score and tier from its
// sessions and raises alerts for the monitor rules: unconfigured scrapers,
// low average completeness, stale or never-successful scrapes, and a
// suspicious share of zero-price active sessions. One call processes one
// page of sources; the cursor walks source ids.
func (r *Runner) QualityCheck(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	report := Report{Job: "quality_check", DryRun: opts.DryRun}
	defer trackDuration(report.Job, metrics.RecordJobDuration)()

	sources, err := r.store.ActiveSourcesPage(ctx, opts.Cursor, opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("page sources: %w", err)
	}

	for _, src := range sources {
		report.Scanned++

		sessions, err := r.store.SessionsBySource(ctx, src.ID)
		if err != nil {
			metrics.RecordJobError(report.Job)
			report.addError(src.ID, err)
			continue
		}

		summary := quality.ForSessions(sessions)
		if !opts.DryRun {
			if err := r.store.UpdateSourceQuality(ctx, src.ID, summary.Score, summary.Tier); err != nil {
				metrics.RecordJobError(report.Job)
				report.addError(src.ID, err)
				continue
			}
			metrics.RecordSourceQualityUpdate()
		}

		for _, alert := range r.sourceAlerts(src, sessions, summary) {
			if opts.DryRun {
				report.Affected++
				continue
			}
			created, err := r.store.InsertAlertIfAbsent(ctx, alert)
			if err != nil {
				metrics.RecordJobError(report.Job)
				report.addError(src.ID, err)
				continue
			}
			if created {
				metrics.RecordAlertRaised(string(alert.Type))
				report.Affected++
				r.logger.Warn(ctx, "data quality alert",
					logger.String("source_id", src.ID),
					logger.String("type", string(alert.Type)),
					logger.String("message", alert.Message),
				)
			}
		}
	}

	if len(sources) == opts.BatchSize {
		report.NextCursor = sources[len(sources)-1].ID
	}
	return report, nil
}

// sourceAlerts evaluates the monitor rules for one source and returns the
// alerts that apply right now.
func (r *Runner) sourceAlerts(src model.Source, sessions []model.Session, summary quality.Summary) []model.Alert {
	now := r.now().UTC()
	var alerts []model.Alert

	add := func(t model.AlertType, sev model.Severity, msg string) {
		alerts = append(alerts, model.Alert{
			ID:        uuid.NewString(),
			SourceID:  src.ID,
			Type:      t,
			Severity:  sev,
			Message:   msg,
			CreatedAt: now,
		})
	}

	if !src.ScraperConfigured {
		add(model.AlertMissingScraper, model.SeverityWarning,
			"source is active but has no scraper configured")
	}

	// An empty source scores 0 and warns too; a source with nothing to
	// show is exactly what the monitor exists to surface.
	if summary.Score < r.lowQualityThreshold {
		add(model.AlertLowQuality, model.SeverityWarning,
			fmt.Sprintf("average completeness %d below threshold %d", summary.Score, r.lowQualityThreshold))
	}

	switch {
	case src.Health.LastSuccessAt == nil && src.Health.TotalRuns > 0:
		add(model.AlertNeverSucceeded, model.SeverityError,
			fmt.Sprintf("scraper has never succeeded in %d runs", src.Health.TotalRuns))
	case src.Health.LastSuccessAt != nil && now.Sub(*src.Health.LastSuccessAt) > r.staleAfter:
		add(model.AlertStaleScrape, model.SeverityWarning,
			fmt.Sprintf("last successful scrape was %s", src.Health.LastSuccessAt.Format("2006-01-02")))
	}

	actives, zeroPriced := 0, 0
	for _, s := range sessions {
		if s.Status != model.StatusActive {
			continue
		}
		actives++
		if s.PriceCents != nil && *s.PriceCents == 0 {
			zeroPriced++
		}
	}
	if actives >= r.zeroPriceMinActives &&
		float64(zeroPriced)/float64(actives) >= r.zeroPriceRatio {
		add(model.AlertZeroPriceActives, model.SeverityWarning,
			fmt.Sprintf("%d of %d active sessions have a $0 price", zeroPriced, actives))
	}

	return alerts
}
