package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/campsift/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	c1 := model.Candidate{SourceID: "src-1", CityID: "city-1", Name: "Soccer Camp"}
	if !q.Enqueue(ctx, c1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	candidateChan := q.Dequeue(ctx)
	c := <-candidateChan
	if c.Name != "Soccer Camp" {
		t.Errorf("expected Soccer Camp, got %v", c.Name)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	c1 := model.Candidate{SourceID: "src-1", Name: "Camp A"}
	c2 := model.Candidate{SourceID: "src-1", Name: "Camp B"}
	c3 := model.Candidate{SourceID: "src-1", Name: "Camp C"}

	if !q.Enqueue(ctx, c1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, c2) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, c3) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numCandidates := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numCandidates; j++ {
				c := model.Candidate{
					SourceID: fmt.Sprintf("src-%d", id),
					CityID:   "city-1",
					Name:     fmt.Sprintf("camp %d_%d", id, j),
				}
				for !q.Enqueue(ctx, c) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan string, numGoroutines*numCandidates)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			candidateChan := q.Dequeue(ctx)
			for c := range candidateChan {
				consumed <- c.Name
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	// Enqueue some candidates
	c1 := model.Candidate{SourceID: "src-1", Name: "Camp A"}
	c2 := model.Candidate{SourceID: "src-1", Name: "Camp B"}

	if !q.Enqueue(ctx, c1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, c2) {
		t.Error("expected enqueue to succeed")
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, c1) {
		t.Error("expected enqueue to fail after closing")
	}

	// Dequeue channel should be closed
	candidateChan := q.Dequeue(ctx)

	// Wait for channel to be closed
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-candidateChan:
			if !ok {
				// Channel is closed, which is expected
				goto channelClosed
			}
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
