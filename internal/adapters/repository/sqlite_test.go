package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/campsift/internal/adapters/repository"
	"github.com/okian/campsift/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

func intp(v int) *int { return &v }

func testSession(id, sourceID, cityID string) model.Session {
	return model.Session{
		ID:       id,
		SourceID: sourceID,
		CityID:   cityID,
		Name:     "Soccer Camp",
		Status:   model.StatusActive,
		Dates: model.DateRange{
			Start: time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		},
		DropOff:           &model.TimeOfDay{Hour: 9, Minute: 0},
		PickUp:            &model.TimeOfDay{Hour: 15, Minute: 30},
		Location:          "Lincoln Community Center, 450 Oak Street, Springfield",
		Ages:              model.AgeGradeRange{MinAge: intp(6), MaxAge: intp(12)},
		PriceCents:        intp(25000),
		RegistrationURL:   "https://example.org/register",
		Categories:        []string{"sports", "outdoor"},
		CompletenessScore: 100,
		CreatedAt:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testSource(id, cityID string) model.Source {
	return model.Source{
		ID:                id,
		Name:              "Springfield Parks",
		CityID:            cityID,
		Active:            true,
		ScraperConfigured: true,
		Tier:              model.TierLow,
		CreatedAt:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStoreSessions(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLiteStore(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		Convey("A missing session returns ErrNotFound", func() {
			_, err := store.Session(ctx, "nope")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("An upserted session round-trips", func() {
			in := testSession("s1", "src-1", "city-1")
			So(store.UpsertSession(ctx, in), ShouldBeNil)

			got, err := store.Session(ctx, "s1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Soccer Camp")
			So(got.Status, ShouldEqual, model.StatusActive)
			So(got.Dates.Start.Equal(in.Dates.Start), ShouldBeTrue)
			So(got.Dates.End.Equal(in.Dates.End), ShouldBeTrue)
			So(got.DropOff, ShouldNotBeNil)
			So(got.DropOff.Hour, ShouldEqual, 9)
			So(got.PickUp.Minute, ShouldEqual, 30)
			So(got.Ages.MinAge, ShouldNotBeNil)
			So(*got.Ages.MinAge, ShouldEqual, 6)
			So(got.Ages.MinGrade, ShouldBeNil)
			So(*got.PriceCents, ShouldEqual, 25000)
			So(got.Categories, ShouldResemble, []string{"sports", "outdoor"})
			So(got.CompletenessScore, ShouldEqual, 100)
		})

		Convey("Upserting the same id again replaces the row", func() {
			in := testSession("s1", "src-1", "city-1")
			So(store.UpsertSession(ctx, in), ShouldBeNil)

			in.Name = "Soccer Camp Week 2"
			in.CompletenessScore = 86
			So(store.UpsertSession(ctx, in), ShouldBeNil)

			got, err := store.Session(ctx, "s1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Soccer Camp Week 2")
			So(got.CompletenessScore, ShouldEqual, 86)

			n, err := store.CountSessions(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("Sparse sessions keep nil optionals", func() {
			in := model.Session{
				ID:        "s2",
				SourceID:  "src-1",
				CityID:    "city-1",
				Name:      "Mystery Camp",
				Status:    model.StatusPendingReview,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			So(store.UpsertSession(ctx, in), ShouldBeNil)

			got, err := store.Session(ctx, "s2")
			So(err, ShouldBeNil)
			So(got.DropOff, ShouldBeNil)
			So(got.PickUp, ShouldBeNil)
			So(got.PriceCents, ShouldBeNil)
			So(got.Ages.IsZero(), ShouldBeTrue)
			So(got.HasDates(), ShouldBeFalse)
		})

		Convey("Sessions can be listed by source and city", func() {
			So(store.UpsertSession(ctx, testSession("a", "src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("b", "src-1", "city-2")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("c", "src-2", "city-1")), ShouldBeNil)

			bySource, err := store.SessionsBySource(ctx, "src-1")
			So(err, ShouldBeNil)
			So(len(bySource), ShouldEqual, 2)

			byCity, err := store.SessionsByCity(ctx, "city-1")
			So(err, ShouldBeNil)
			So(len(byCity), ShouldEqual, 2)
		})

		Convey("DeleteSessions removes every listed row", func() {
			So(store.UpsertSession(ctx, testSession("a", "src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("b", "src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("c", "src-1", "city-1")), ShouldBeNil)

			So(store.DeleteSessions(ctx, []string{"a", "c"}), ShouldBeNil)

			n, err := store.CountSessions(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			_, err = store.Session(ctx, "b")
			So(err, ShouldBeNil)
		})

		Convey("Deleting nothing is a no-op", func() {
			So(store.DeleteSessions(ctx, nil), ShouldBeNil)
		})
	})
}

func TestSQLiteStoreSources(t *testing.T) {
	Convey("Given a store with sources", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLiteStore(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		Convey("Sources round-trip", func() {
			So(store.UpsertSource(ctx, testSource("src-1", "city-1")), ShouldBeNil)

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Springfield Parks")
			So(got.Active, ShouldBeTrue)
			So(got.Health.LastSuccessAt, ShouldBeNil)
		})

		Convey("Re-registering a source keeps quality and health history", func() {
			So(store.UpsertSource(ctx, testSource("src-1", "city-1")), ShouldBeNil)

			when := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
			So(store.RecordScrapeOutcome(ctx, "src-1", true, when), ShouldBeNil)
			So(store.UpdateSourceQuality(ctx, "src-1", 85, model.TierHigh), ShouldBeNil)

			// A routine PUT from the scraper carries only identity fields.
			renamed := testSource("src-1", "city-2")
			renamed.Name = "Springfield Parks and Rec"
			So(store.UpsertSource(ctx, renamed), ShouldBeNil)

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Springfield Parks and Rec")
			So(got.CityID, ShouldEqual, "city-2")
			So(got.DataQualityScore, ShouldEqual, 85)
			So(got.Tier, ShouldEqual, model.TierHigh)
			So(got.Health.TotalRuns, ShouldEqual, 1)
			So(got.Health.SuccessRate, ShouldEqual, 1.0)
			So(got.Health.LastSuccessAt, ShouldNotBeNil)
			So(got.Health.LastSuccessAt.Equal(when), ShouldBeTrue)
		})

		Convey("UpdateSourceQuality writes score and tier", func() {
			So(store.UpsertSource(ctx, testSource("src-1", "city-1")), ShouldBeNil)

			So(store.UpdateSourceQuality(ctx, "src-1", 85, model.TierHigh), ShouldBeNil)

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.DataQualityScore, ShouldEqual, 85)
			So(got.Tier, ShouldEqual, model.TierHigh)
		})

		Convey("UpdateSourceQuality on a missing source fails", func() {
			err := store.UpdateSourceQuality(ctx, "nope", 85, model.TierHigh)
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("ActiveSourcesPage walks sources in keyset order", func() {
			So(store.UpsertSource(ctx, testSource("src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSource(ctx, testSource("src-2", "city-1")), ShouldBeNil)
			inactive := testSource("src-3", "city-1")
			inactive.Active = false
			So(store.UpsertSource(ctx, inactive), ShouldBeNil)

			page, err := store.ActiveSourcesPage(ctx, "", 1)
			So(err, ShouldBeNil)
			So(len(page), ShouldEqual, 1)
			So(page[0].ID, ShouldEqual, "src-1")

			page, err = store.ActiveSourcesPage(ctx, page[0].ID, 10)
			So(err, ShouldBeNil)
			So(len(page), ShouldEqual, 1)
			So(page[0].ID, ShouldEqual, "src-2")
		})

		Convey("Page size limits are enforced", func() {
			_, err := store.ActiveSourcesPage(ctx, "", 0)
			So(err, ShouldEqual, repository.ErrInvalidPageSize)
			_, err = store.ActiveSourcesPage(ctx, "", 501)
			So(err, ShouldEqual, repository.ErrInvalidPageSize)
		})

		Convey("CityIDsPage returns distinct cities with sessions", func() {
			So(store.UpsertSession(ctx, testSession("a", "src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("b", "src-1", "city-1")), ShouldBeNil)
			So(store.UpsertSession(ctx, testSession("c", "src-2", "city-2")), ShouldBeNil)

			cities, err := store.CityIDsPage(ctx, "", 10)
			So(err, ShouldBeNil)
			So(cities, ShouldResemble, []string{"city-1", "city-2"})

			cities, err = store.CityIDsPage(ctx, "city-1", 10)
			So(err, ShouldBeNil)
			So(cities, ShouldResemble, []string{"city-2"})
		})
	})
}

func TestSQLiteStoreScrapeHealth(t *testing.T) {
	Convey("Given a store with one source", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLiteStore(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		So(store.UpsertSource(ctx, testSource("src-1", "city-1")), ShouldBeNil)
		now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

		Convey("A success resets failures and records the timestamp", func() {
			So(store.RecordScrapeOutcome(ctx, "src-1", true, now), ShouldBeNil)

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.Health.TotalRuns, ShouldEqual, 1)
			So(got.Health.ConsecutiveFailures, ShouldEqual, 0)
			So(got.Health.SuccessRate, ShouldEqual, 1.0)
			So(got.Health.LastSuccessAt, ShouldNotBeNil)
			So(got.Health.LastSuccessAt.Equal(now), ShouldBeTrue)
		})

		Convey("Failures accumulate and eventually flag regeneration", func() {
			So(store.RecordScrapeOutcome(ctx, "src-1", true, now), ShouldBeNil)
			for i := 0; i < 3; i++ {
				So(store.RecordScrapeOutcome(ctx, "src-1", false, now.Add(time.Hour)), ShouldBeNil)
			}

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.Health.ConsecutiveFailures, ShouldEqual, 3)
			So(got.Health.TotalRuns, ShouldEqual, 4)
			So(got.Health.SuccessRate, ShouldEqual, 0.25)
			So(got.Health.NeedsRegeneration, ShouldBeTrue)
			// the old success timestamp survives failed runs
			So(got.Health.LastSuccessAt.Equal(now), ShouldBeTrue)
		})

		Convey("A success after failures clears the streak but not the flag history", func() {
			for i := 0; i < 2; i++ {
				So(store.RecordScrapeOutcome(ctx, "src-1", false, now), ShouldBeNil)
			}
			So(store.RecordScrapeOutcome(ctx, "src-1", true, now), ShouldBeNil)

			got, err := store.Source(ctx, "src-1")
			So(err, ShouldBeNil)
			So(got.Health.ConsecutiveFailures, ShouldEqual, 0)
			So(got.Health.NeedsRegeneration, ShouldBeFalse)
		})

		Convey("Recording against an unknown source fails", func() {
			err := store.RecordScrapeOutcome(ctx, "nope", true, now)
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func TestSQLiteStoreAlerts(t *testing.T) {
	Convey("Given a store", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLiteStore(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		alert := model.Alert{
			ID:        "al-1",
			SourceID:  "src-1",
			Type:      model.AlertLowQuality,
			Severity:  model.SeverityWarning,
			Message:   "average completeness 42 below threshold",
			CreatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		}

		Convey("The first insert succeeds, duplicates are suppressed", func() {
			created, err := store.InsertAlertIfAbsent(ctx, alert)
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			dup := alert
			dup.ID = "al-2"
			created, err = store.InsertAlertIfAbsent(ctx, dup)
			So(err, ShouldBeNil)
			So(created, ShouldBeFalse)

			open, err := store.OpenAlerts(ctx, "src-1")
			So(err, ShouldBeNil)
			So(len(open), ShouldEqual, 1)
			So(open[0].Type, ShouldEqual, model.AlertLowQuality)
			So(open[0].Open, ShouldBeTrue)
		})

		Convey("Different alert types for the same source coexist", func() {
			_, err := store.InsertAlertIfAbsent(ctx, alert)
			So(err, ShouldBeNil)

			stale := alert
			stale.ID = "al-3"
			stale.Type = model.AlertStaleScrape
			created, err := store.InsertAlertIfAbsent(ctx, stale)
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			open, err := store.OpenAlerts(ctx, "src-1")
			So(err, ShouldBeNil)
			So(len(open), ShouldEqual, 2)
		})
	})
}
