package jobs

import (
	"context"
	"fmt"

	"github.com/okian/campsift/internal/domain/dedupe"
	"github.com/okian/campsift/pkg/logger"
	"github.com/okian/campsift/pkg/metrics"
)

// WithinSourceMerge collapses exact duplicates inside each source: sessions
// sharing the same normalized name and start date. The highest-scoring row
// in a group survives; the rest are deleted. One call processes one page
// of sources; the cursor walks source ids.
func (r *Runner) WithinSourceMerge(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()
	report := Report{Job: "within_source_merge", DryRun: opts.DryRun}
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

		for _, group := range dedupe.GroupDuplicates(sessions) {
			metrics.RecordDuplicateGroup()

			ids := make([]string, len(group.Collapse))
			for i, s := range group.Collapse {
				ids[i] = s.ID
			}

			if !opts.DryRun {
				if err := r.store.DeleteSessions(ctx, ids); err != nil {
					metrics.RecordJobError(report.Job)
					report.addError(group.Keep.ID, err)
					continue
				}
				metrics.RecordSessionsCollapsed(len(ids))
			}

			report.Affected += len(ids)
			r.logger.Info(ctx, "duplicate group collapsed",
				logger.String("source_id", src.ID),
				logger.String("key", group.Key),
				logger.String("kept", group.Keep.ID),
				logger.Int("collapsed", len(ids)),
				logger.Any("dry_run", opts.DryRun),
			)
		}
	}

	if len(sources) == opts.BatchSize {
		report.NextCursor = sources[len(sources)-1].ID
	}
	return report, nil
}
