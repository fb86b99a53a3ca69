package jobs

import (
	"time"

	"github.com/okian/campsift/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithCrossSourceThreshold sets the name similarity threshold for the
// cross-source scan.
func WithCrossSourceThreshold(threshold float64) Option {
	return func(r *Runner) {
		if threshold > 0 && threshold <= 1 {
			r.crossSourceThreshold = threshold
		}
	}
}

// WithLowQualityThreshold sets the average completeness score below which
// a source gets a low_quality alert.
func WithLowQualityThreshold(threshold int) Option {
	return func(r *Runner) {
		if threshold > 0 {
			r.lowQualityThreshold = threshold
		}
	}
}

// WithStaleAfter sets how long without a successful scrape counts as stale.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithZeroPriceRatio sets the ratio of zero-price active sessions that
// triggers a zero_price_actives alert.
func WithZeroPriceRatio(ratio float64) Option {
	return func(r *Runner) {
		if ratio > 0 && ratio <= 1 {
			r.zeroPriceRatio = ratio
		}
	}
}

// WithClock overrides the runner's clock. Tests use this to pin time.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
