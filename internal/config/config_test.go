package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/campsift/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "campsift.db")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.TrackerSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.BatchSize, convey.ShouldEqual, 100)
			convey.So(cfg.CrossSourceThreshold, convey.ShouldEqual, 0.85)
			convey.So(cfg.LowQualityThreshold, convey.ShouldEqual, 50)
			convey.So(cfg.StaleAfterDays, convey.ShouldEqual, 7)
			convey.So(cfg.JobIntervalHours, convey.ShouldEqual, 24)
		})
	})
}
