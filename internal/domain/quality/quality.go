// Package quality aggregates per-session completeness into a source-level
// score and tier read by operational tooling.
package quality

import (
	"math"

	"github.com/okian/campsift/internal/domain/model"
)

// Tier thresholds over the mean completeness score.
const (
	highTierThreshold   = 80
	mediumTierThreshold = 50
)

// Summary is a source's aggregated data quality.
type Summary struct {
	Score int        `json:"score"`
	Tier  model.Tier `json:"tier"`
}

// ForSessions computes a source's quality from the sessions attributed to
// it: the rounded mean of their completeness scores. An empty session set
// scores 0.
func ForSessions(sessions []model.Session) Summary {
	if len(sessions) == 0 {
		return Summary{Score: 0, Tier: model.TierLow}
	}

	total := 0
	for _, s := range sessions {
		total += s.CompletenessScore
	}
	score := int(math.Round(float64(total) / float64(len(sessions))))
	return Summary{Score: score, Tier: TierFor(score)}
}

// TierFor buckets a score into the coarse low/medium/high tiers.
func TierFor(score int) model.Tier {
	switch {
	case score >= highTierThreshold:
		return model.TierHigh
	case score >= mediumTierThreshold:
		return model.TierMedium
	default:
		return model.TierLow
	}
}
