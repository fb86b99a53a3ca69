// Package dedupe detects duplicate camp sessions: exact within-source
// collapsing via deterministic keys, fuzzy cross-source matching via name
// similarity, and an in-memory ingest guard for at-most-once submission.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records seen ingest keys so a re-submitted candidate is caught
// before it reaches the queue. The scheduled merge pass remains the durable
// guarantee; this guard only short-circuits duplicates within a run.
type Tracker interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing the candidate to be retried. Used
	// when a candidate was marked seen but failed to enqueue.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// node is one entry in the eviction list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// inMemoryTracker implements Tracker with a map plus a linked list for
// bounded-mode eviction. With maxSize <= 0 the tracker is unbounded and the
// list is unused.
type inMemoryTracker struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewTracker creates an in-memory ingest key tracker.
func NewTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: defaultTrackerSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.seen = make(map[string]*node)
	if t.maxSize > 0 {
		t.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return t
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (t *inMemoryTracker) SeenAndRecord(ctx context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.seen[key]; exists {
		return true
	}

	if t.maxSize > 0 {
		if len(t.seen) >= t.maxSize {
			t.evictOldest()
		}

		n := t.nodePool.Get().(*node)
		n.key = key
		n.next = t.head
		t.head = n
		t.seen[key] = n
	} else {
		t.seen[key] = nil
	}
	t.size.Add(1)
	return false
}

// Unrecord removes a key from the seen set.
func (t *inMemoryTracker) Unrecord(ctx context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, exists := t.seen[key]
	if !exists {
		return
	}
	delete(t.seen, key)
	t.size.Add(-1)

	if t.maxSize <= 0 {
		return
	}

	if t.head == n {
		t.head = n.next
	} else {
		current := t.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}
	n.reset()
	t.nodePool.Put(n)
}

// evictOldest drops the tail of the list. Caller holds t.mu.
func (t *inMemoryTracker) evictOldest() {
	if t.head == nil {
		return
	}

	if t.head.next == nil {
		delete(t.seen, t.head.key)
		t.head.reset()
		t.nodePool.Put(t.head)
		t.head = nil
		t.size.Add(-1)
		return
	}

	var prev *node
	current := t.head
	for current.next != nil {
		prev = current
		current = current.next
	}
	prev.next = nil
	delete(t.seen, current.key)
	current.reset()
	t.nodePool.Put(current)
	t.size.Add(-1)
}

// Size returns the current number of tracked keys.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
