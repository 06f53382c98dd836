package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/tweets/internal/domain/model"
)

func event(id string) model.Event {
	return model.Event{EventID: id, Type: model.EventCreated, TweetID: 1, Message: "m"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, event("event1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.EventID != "event1" {
		t.Errorf("expected event1, got %v", got.EventID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, event("event1")) || !q.Enqueue(ctx, event("event2")) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, event("event3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, event("event1")) {
		t.Error("expected enqueue with canceled context to fail")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, event("queued"))
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, event("late")) {
		t.Error("expected enqueue after close to fail")
	}

	// Events queued before close are still delivered, then the channel ends.
	var ids []string
	for e := range q.Dequeue(ctx) {
		ids = append(ids, e.EventID)
	}
	if len(ids) != 1 || ids[0] != "queued" {
		t.Errorf("expected [queued], got %v", ids)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 10, 50
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, event(fmt.Sprintf("p%d-e%d", id, j))) {
					t.Errorf("enqueue p%d-e%d dropped", id, j)
				}
			}
		}(i)
	}
	wg.Wait()
	_ = q.Close()

	seen := map[string]bool{}
	for e := range q.Dequeue(ctx) {
		if seen[e.EventID] {
			t.Errorf("duplicate event %s", e.EventID)
		}
		seen[e.EventID] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d events, got %d", producers*perProducer, len(seen))
	}
}
