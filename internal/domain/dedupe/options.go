package dedupe

// defaultTrackerSize bounds the ingest guard's memory.
const defaultTrackerSize = 50000

// Option applies a configuration option to the inMemoryTracker.
type Option func(*inMemoryTracker)

// WithMaxSize sets the maximum number of keys kept in memory.
// A value <= 0 makes the tracker unbounded.
func WithMaxSize(maxSize int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = maxSize
	}
}
