package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/campsift/internal/app"
	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/jobs"
	"github.com/okian/campsift/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func jobsOptions() jobs.Options {
	return jobs.Options{DryRun: true}
}

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	return service.New(service.WithDBPath(":memory:"))
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithTrackerSize(25_000),
			service.WithDBPath(":memory:"),
			service.WithCrossSourceThreshold(0.9),
			service.WithStaleAfter(48*time.Hour),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newTestService(t)
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newTestService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_IngestCandidate(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newTestService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)
		// Ensure service is stopped after test
		defer svc.Stop()

		start := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)

		Convey("When ingesting a new candidate", func() {
			accepted, duplicate := svc.IngestCandidate(ctx, model.Candidate{
				SourceID:  "src-1",
				CityID:    "city-1",
				Name:      "Soccer Camp",
				StartDate: &start,
			})

			Convey("Then it should be accepted as new", func() {
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeFalse)
			})
		})

		Convey("When ingesting the same candidate twice", func() {
			c := model.Candidate{
				SourceID:  "src-1",
				CityID:    "city-1",
				Name:      "Pottery Camp",
				StartDate: &start,
			}
			svc.IngestCandidate(ctx, c)
			accepted, duplicate := svc.IngestCandidate(ctx, c)

			Convey("Then the second ingest should be a duplicate", func() {
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeTrue)
			})
		})

		Convey("When ingesting name variants of one listing", func() {
			a := model.Candidate{SourceID: "src-1", Name: "Chess Camp (Grades K-2)", StartDate: &start}
			b := model.Candidate{SourceID: "src-1", Name: "Chess Camp (Grades 3-5)", StartDate: &start}
			svc.IngestCandidate(ctx, a)
			_, duplicate := svc.IngestCandidate(ctx, b)

			Convey("Then the grade qualifier should not defeat deduplication", func() {
				So(duplicate, ShouldBeTrue)
			})
		})

		Convey("When a candidate has no parsed start date", func() {
			c := model.Candidate{
				SourceID: "src-1",
				Name:     "Mystery Camp",
				DateText: "Summer 2026",
			}
			svc.IngestCandidate(ctx, c)
			_, duplicate := svc.IngestCandidate(ctx, c)

			Convey("Then the raw date text still keys deduplication", func() {
				So(duplicate, ShouldBeTrue)
			})
		})
	})
}

func TestService_SourceQuality(t *testing.T) {
	Convey("Given a started service with one source", t, func() {
		svc := newTestService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)
		defer svc.Stop()

		now := time.Now().UTC()
		err = svc.UpsertSource(ctx, model.Source{
			ID:                "src-1",
			Name:              "Springfield Parks",
			CityID:            "city-1",
			Active:            true,
			ScraperConfigured: true,
			Tier:              model.TierLow,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		So(err, ShouldBeNil)

		Convey("When recording scrape outcomes", func() {
			So(svc.RecordScrapeOutcome(ctx, "src-1", true), ShouldBeNil)

			src, alerts, err := svc.SourceQuality(ctx, "src-1")
			So(err, ShouldBeNil)
			So(src.Health.TotalRuns, ShouldEqual, 1)
			So(alerts, ShouldBeEmpty)
		})

		Convey("When running the maintenance jobs", func() {
			report, err := svc.RunWithinSourceMerge(ctx, jobsOptions())
			So(err, ShouldBeNil)
			So(report.Job, ShouldEqual, "within_source_merge")

			report, err = svc.RunCrossSourceScan(ctx, jobsOptions())
			So(err, ShouldBeNil)
			So(report.Job, ShouldEqual, "cross_source_scan")

			report, err = svc.RunQualityCheck(ctx, jobsOptions())
			So(err, ShouldBeNil)
			So(report.Job, ShouldEqual, "quality_check")
			So(report.Scanned, ShouldEqual, 1)
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newTestService(t)

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}
