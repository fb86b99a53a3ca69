package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	service "github.com/okian/campsift/internal/app"
	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/jobs"
	. "github.com/smartystreets/goconvey/convey"
)

func intp(v int) *int { return &v }

func fullCandidate(sourceID, cityID, name string, start time.Time) model.Candidate {
	end := start.AddDate(0, 0, 4)
	return model.Candidate{
		SourceID:        sourceID,
		CityID:          cityID,
		Name:            name,
		StartDate:       &start,
		EndDate:         &end,
		DropOffHour:     intp(9),
		PickUpHour:      intp(15),
		Location:        "Lincoln Community Center, 450 Oak Street, Springfield",
		MinAge:          intp(6),
		MaxAge:          intp(12),
		PriceCents:      intp(25000),
		RegistrationURL: "https://example.org/register",
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithTrackerSize(500),
			service.WithDBPath(":memory:"),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And the service should be running", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When processing candidates end-to-end", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			// Give service time to start
			time.Sleep(100 * time.Millisecond)

			Convey("And ingesting multiple candidates", func() {
				week1 := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
				week2 := time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC)
				candidates := []model.Candidate{
					fullCandidate("src-1", "city-1", "Soccer Camp", week1),
					fullCandidate("src-1", "city-1", "Soccer Camp", week2),
					fullCandidate("src-2", "city-1", "Pottery Camp", week1),
				}

				for _, c := range candidates {
					accepted, duplicate := svc.IngestCandidate(ctx, c)
					So(accepted, ShouldBeTrue)
					So(duplicate, ShouldBeFalse)
				}

				// Give workers time to process
				time.Sleep(500 * time.Millisecond)

				Convey("Then sessions should be persisted", func() {
					stats := svc.GetStats()
					So(stats["totalSessions"], ShouldEqual, 3)
				})

				Convey("And re-ingesting a candidate should be a duplicate", func() {
					accepted, duplicate := svc.IngestCandidate(ctx, candidates[0])
					So(accepted, ShouldBeTrue)
					So(duplicate, ShouldBeTrue)

					// No extra session appears
					time.Sleep(200 * time.Millisecond)
					stats := svc.GetStats()
					So(stats["totalSessions"], ShouldEqual, 3)
				})

				Convey("And the maintenance jobs should run against the store", func() {
					err := svc.UpsertSource(ctx, model.Source{
						ID: "src-1", Name: "Parks", CityID: "city-1",
						Active: true, ScraperConfigured: true,
						CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
					})
					So(err, ShouldBeNil)

					report, err := svc.RunQualityCheck(ctx, jobs.Options{})
					So(err, ShouldBeNil)
					So(report.Scanned, ShouldEqual, 1)

					src, _, err := svc.SourceQuality(ctx, "src-1")
					So(err, ShouldBeNil)
					So(src.DataQualityScore, ShouldEqual, 100)
					So(src.Tier, ShouldEqual, model.TierHigh)
				})
			})
		})

		Convey("When handling service lifecycle", func() {
			Convey("And starting and stopping multiple times", func() {
				// Start service
				err := svc.Start(ctx)
				So(err, ShouldBeNil)

				// Give it time to start
				time.Sleep(100 * time.Millisecond)

				// Stop service
				svc.Stop()

				// Give it time to stop
				time.Sleep(100 * time.Millisecond)

				// Check it's stopped
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)

				// Start again
				err = svc.Start(ctx)
				So(err, ShouldBeNil)

				// Give it time to start
				time.Sleep(100 * time.Millisecond)

				// Check it's started again
				stats = svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When handling edge cases", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			// Give service time to start
			time.Sleep(100 * time.Millisecond)

			Convey("And ingesting nearly empty candidates", func() {
				sparse := []model.Candidate{
					{SourceID: "src-9", Name: "Mystery Camp"},
					{SourceID: "src-9", Name: "Unknown Hours Camp", DateText: "<unknown>"},
					{SourceID: "src-9", Name: "TBD Camp", PriceText: "TBD"},
				}

				for _, c := range sparse {
					accepted, _ := svc.IngestCandidate(ctx, c)
					So(accepted, ShouldBeTrue)
				}

				// Give workers time to process
				time.Sleep(500 * time.Millisecond)

				Convey("Then validation should accept them as pending_review sessions", func() {
					stats := svc.GetStats()
					So(stats["started"], ShouldEqual, true)
					So(stats["totalSessions"], ShouldEqual, 3)
				})
			})

			Convey("And ingesting candidates with very long names", func() {
				long := fullCandidate("src-9", "city-9",
					"very-long-camp-name-"+string(make([]byte, 1000)),
					time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC))

				accepted, _ := svc.IngestCandidate(ctx, long)
				So(accepted, ShouldBeTrue)

				// Give workers time to process
				time.Sleep(300 * time.Millisecond)

				Convey("Then long names should be handled", func() {
					stats := svc.GetStats()
					So(stats["started"], ShouldEqual, true)
				})
			})
		})
	})
}

func TestServiceLowQualityThreshold(t *testing.T) {
	Convey("Given a service with a raised low-quality threshold", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithTrackerSize(100),
			service.WithDBPath(":memory:"),
			service.WithLowQualityThreshold(80),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)
		time.Sleep(100 * time.Millisecond)

		Convey("When a source's sessions score between the default and the override", func() {
			// Five of the seven field groups present: no times, no price.
			c := fullCandidate("src-1", "city-1", "Soccer Camp",
				time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC))
			c.DropOffHour = nil
			c.PickUpHour = nil
			c.PriceCents = nil

			accepted, _ := svc.IngestCandidate(ctx, c)
			So(accepted, ShouldBeTrue)
			time.Sleep(300 * time.Millisecond)

			err := svc.UpsertSource(ctx, model.Source{
				ID: "src-1", Name: "Parks", CityID: "city-1",
				Active: true, ScraperConfigured: true,
				CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
			})
			So(err, ShouldBeNil)
			So(svc.RecordScrapeOutcome(ctx, "src-1", true), ShouldBeNil)

			_, err = svc.RunQualityCheck(ctx, jobs.Options{})
			So(err, ShouldBeNil)

			Convey("Then the configured threshold drives the low_quality alert", func() {
				src, alerts, err := svc.SourceQuality(ctx, "src-1")
				So(err, ShouldBeNil)
				So(src.DataQualityScore, ShouldEqual, 71)
				So(len(alerts), ShouldEqual, 1)
				So(alerts[0].Type, ShouldEqual, model.AlertLowQuality)
				So(alerts[0].Message, ShouldContainSubstring, "threshold 80")
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service with concurrent operations", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(2000),
			service.WithTrackerSize(1000),
			service.WithDBPath(":memory:"),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		// Give service time to start
		time.Sleep(100 * time.Millisecond)

		Convey("When multiple goroutines ingest candidates concurrently", func() {
			numGoroutines := 10
			perGoroutine := 50
			done := make(chan bool, numGoroutines)

			for i := 0; i < numGoroutines; i++ {
				go func(goroutineID int) {
					base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
					for j := 0; j < perGoroutine; j++ {
						c := fullCandidate(
							fmt.Sprintf("src-%d", goroutineID),
							"city-1",
							fmt.Sprintf("camp-%d-%d", goroutineID, j),
							base.AddDate(0, 0, j),
						)
						svc.IngestCandidate(ctx, c)
					}
					done <- true
				}(i)
			}

			// Wait for all goroutines to complete
			for i := 0; i < numGoroutines; i++ {
				<-done
			}

			// Give workers time to process
			time.Sleep(2 * time.Second)

			Convey("Then all candidates should be processed", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalSessions"], ShouldEqual, numGoroutines*perGoroutine)
			})
		})
	})
}

func TestServiceBackpressure(t *testing.T) {
	Convey("Given a service with a tiny queue", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(10), // Small queue to test backpressure
			service.WithTrackerSize(5),
			service.WithDBPath(":memory:"),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		// Give service time to start
		time.Sleep(100 * time.Millisecond)

		Convey("When ingesting candidates beyond queue capacity", func() {
			base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			acceptedCount := 0
			for i := 0; i < 200; i++ {
				c := fullCandidate("src-1", "city-1",
					fmt.Sprintf("backpressure-camp-%d", i),
					base.AddDate(0, 0, i))
				if accepted, _ := svc.IngestCandidate(ctx, c); accepted {
					acceptedCount++
				}
			}

			Convey("Then the service should survive and accept at least some", func() {
				So(acceptedCount, ShouldBeGreaterThan, 0)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}
