// Package status resolves a validated session's publication state. The
// resolver is a pure function of the completeness score and the price
// signal; there is no hidden state and no further automatic transition.
package status

import (
	"regexp"

	"github.com/okian/campsift/internal/domain/model"
)

// Score thresholds for the three terminal states.
const (
	reviewThreshold = 50
	completeScore   = 100
)

var freeTextRe = regexp.MustCompile(`(?i)\bfree\b`)

// PriceSignal carries what is known about a session's price. Cents is nil
// when no price was resolved; RawText is whatever the extractor scraped.
type PriceSignal struct {
	Cents   *int
	RawText string
}

// IndicatesFree reports whether the raw price text marks an intentionally
// free session.
func (p PriceSignal) IndicatesFree() bool {
	return freeTextRe.MatchString(p.RawText)
}

// Resolve maps a completeness score and price signal to a lifecycle state.
//
// A structurally perfect record with a $0 price and no "free" indicator is
// held at draft: a suspicious zero usually means broken price extraction,
// and such a record must not reach end users as active.
func Resolve(score int, price PriceSignal) model.Status {
	switch {
	case score < reviewThreshold:
		return model.StatusPendingReview
	case score < completeScore:
		return model.StatusDraft
	case price.Cents != nil && *price.Cents == 0 && !price.IndicatesFree():
		return model.StatusDraft
	default:
		return model.StatusActive
	}
}

// ResolveScoreOnly maps a bare completeness score to a lifecycle state with
// no price information. Callers that have a price signal should use Resolve.
func ResolveScoreOnly(score int) model.Status {
	return Resolve(score, PriceSignal{})
}
