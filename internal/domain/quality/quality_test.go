package quality_test

import (
	"testing"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/domain/quality"
	. "github.com/smartystreets/goconvey/convey"
)

func sessionsWithScores(scores ...int) []model.Session {
	out := make([]model.Session, len(scores))
	for i, s := range scores {
		out[i] = model.Session{CompletenessScore: s}
	}
	return out
}

func TestForSessions(t *testing.T) {
	Convey("Given the source quality scorer", t, func() {
		Convey("When a source has no sessions", func() {
			sum := quality.ForSessions(nil)

			Convey("Then it should score 0 with the low tier", func() {
				So(sum.Score, ShouldEqual, 0)
				So(sum.Tier, ShouldEqual, model.TierLow)
			})
		})

		Convey("When sessions average exactly 80", func() {
			sum := quality.ForSessions(sessionsWithScores(80, 80, 80))

			Convey("Then the tier should be high", func() {
				So(sum.Score, ShouldEqual, 80)
				So(sum.Tier, ShouldEqual, model.TierHigh)
			})
		})

		Convey("When sessions average exactly 50", func() {
			sum := quality.ForSessions(sessionsWithScores(0, 100))

			Convey("Then the tier should be medium", func() {
				So(sum.Score, ShouldEqual, 50)
				So(sum.Tier, ShouldEqual, model.TierMedium)
			})
		})

		Convey("When six sessions score 0 and four score 100", func() {
			sum := quality.ForSessions(sessionsWithScores(0, 0, 0, 0, 0, 0, 100, 100, 100, 100))

			Convey("Then the source should score 40 in the low tier", func() {
				So(sum.Score, ShouldEqual, 40)
				So(sum.Tier, ShouldEqual, model.TierLow)
			})
		})

		Convey("When the mean is fractional", func() {
			sum := quality.ForSessions(sessionsWithScores(86, 86, 100))

			Convey("Then the score should round to the nearest integer", func() {
				So(sum.Score, ShouldEqual, 91)
			})
		})
	})
}
