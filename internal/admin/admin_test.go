package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/campsift/internal/jobs"
	"github.com/smartystreets/goconvey/convey"
)

// newTestServer fakes enough of the daemon API for the CLI: a paged
// maintenance job, a stats snapshot and one source quality report.
func newTestServer(t *testing.T, pages int) (*httptest.Server, *[]jobs.Options) {
	t.Helper()

	var received []jobs.Options
	page := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/maintenance/", func(w http.ResponseWriter, r *http.Request) {
		var opts jobs.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received = append(received, opts)

		page++
		report := jobs.Report{
			Job:      strings.TrimPrefix(r.URL.Path, "/maintenance/"),
			Scanned:  opts.BatchSize,
			Affected: 1,
			DryRun:   opts.DryRun,
		}
		if page < pages {
			report.NextCursor = "cursor-" + string(rune('0'+page))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"started":true,"totalSessions":42}`))
	})
	mux.HandleFunc("/sources/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/quality") {
			http.NotFound(w, r)
			return
		}
		report := QualityReport{
			SourceID:         "src-1",
			Name:             "City Parks",
			CityID:           "city-1",
			Active:           true,
			DataQualityScore: 87,
			Tier:             "high",
			Health:           Health{TotalRuns: 10, SuccessRate: 0.9},
			Alerts: []Alert{
				{ID: "a1", Type: "low_quality", Severity: "warning", Message: "score below threshold", CreatedAt: time.Now().UTC()},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &received
}

// runCLI executes the root command with args and returns its output.
func runCLI(args ...string) (string, string, error) {
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestJobCommands(t *testing.T) {
	convey.Convey("Given a daemon serving paged maintenance jobs", t, func() {
		srv, received := newTestServer(t, 3)

		convey.Convey("When running dedupe with defaults", func() {
			out, _, err := runCLI("dedupe", "--url", srv.URL)

			convey.Convey("Then it should page to completion in dry-run mode", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(*received), convey.ShouldEqual, 3)
				convey.So((*received)[0].DryRun, convey.ShouldBeTrue)
				convey.So((*received)[0].Cursor, convey.ShouldEqual, "")
				convey.So((*received)[1].Cursor, convey.ShouldEqual, "cursor-1")
				convey.So((*received)[2].Cursor, convey.ShouldEqual, "cursor-2")
				convey.So(out, convey.ShouldContainSubstring, "done (dry-run): scanned=300 affected=3")
			})
		})

		convey.Convey("When running quality-check with mutation enabled", func() {
			out, _, err := runCLI("quality-check", "--url", srv.URL, "--dry-run=false", "--batch-size", "25")

			convey.Convey("Then the options should carry through", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So((*received)[0].DryRun, convey.ShouldBeFalse)
				convey.So((*received)[0].BatchSize, convey.ShouldEqual, 25)
				convey.So(out, convey.ShouldContainSubstring, "done (applied)")
			})
		})

		convey.Convey("When resuming from a cursor", func() {
			_, _, err := runCLI("cross-source-scan", "--url", srv.URL, "--cursor", "src-9")

			convey.Convey("Then the first request should start at the cursor", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So((*received)[0].Cursor, convey.ShouldEqual, "src-9")
			})
		})

		convey.Convey("When requesting JSON output", func() {
			out, _, err := runCLI("dedupe", "--url", srv.URL, "--json")

			convey.Convey("Then each page should be a JSON report", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"job":"dedupe"`)
				convey.So(out, convey.ShouldContainSubstring, `"dry_run":true`)
			})
		})
	})

	convey.Convey("Given an unreachable daemon", t, func() {
		convey.Convey("When running a job", func() {
			_, _, err := runCLI("dedupe", "--url", "http://127.0.0.1:1", "--timeout", "500ms")

			convey.Convey("Then the command should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestStatsCommand(t *testing.T) {
	convey.Convey("Given a daemon with stats", t, func() {
		srv, _ := newTestServer(t, 1)

		convey.Convey("When running stats", func() {
			out, _, err := runCLI("stats", "--url", srv.URL)

			convey.Convey("Then the snapshot should be printed as JSON", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"totalSessions": 42`)
			})
		})
	})
}

func TestQualityCommand(t *testing.T) {
	convey.Convey("Given a daemon with a scored source", t, func() {
		srv, _ := newTestServer(t, 1)

		convey.Convey("When fetching a quality report as text", func() {
			out, _, err := runCLI("quality", "src-1", "--url", srv.URL)

			convey.Convey("Then the report should be summarized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "source:  src-1 (City Parks)")
				convey.So(out, convey.ShouldContainSubstring, "quality: 87 (high)")
				convey.So(out, convey.ShouldContainSubstring, "[warning] low_quality")
			})
		})

		convey.Convey("When fetching a quality report as JSON", func() {
			out, _, err := runCLI("quality", "src-1", "--url", srv.URL, "--json")

			convey.Convey("Then the raw report should be printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"data_quality_score": 87`)
			})
		})

		convey.Convey("When the source id is missing", func() {
			_, _, err := runCLI("quality", "--url", srv.URL)

			convey.Convey("Then argument validation should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
