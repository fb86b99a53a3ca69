package worker

import (
	"testing"
	"time"

	logging "github.com/okian/campsift/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestPoolProcessedCounter(t *testing.T) {
	convey.Convey("Given a pool counting processed candidates", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		pool := NewPool(1, nil, nil)
		pool.lastProcessedTime = time.Now().Add(-time.Second)

		pool.RecordProcessedMessage()
		pool.RecordProcessedMessage()

		convey.Convey("Then the counter reflects each recorded candidate", func() {
			convey.So(pool.processedCount.Load(), convey.ShouldEqual, 2)
		})

		convey.Convey("When the metrics tick runs", func() {
			pool.updateMetrics()

			convey.Convey("Then the counter resets for the next window", func() {
				convey.So(pool.processedCount.Load(), convey.ShouldEqual, 0)
			})
		})
	})
}
