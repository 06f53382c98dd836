// Package queue holds tweet change events between the request path and the
// publishing workers.
//
// Enqueue never blocks: a full or closed queue drops the event and counts it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Drop reasons reported to metrics.
const (
	DropClosed   = "closed"
	DropFull     = "queue_full"
	DropCanceled = "context_canceled"
)

// Event represents the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the event was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns the channel consumers read from.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops accepting events; queued events remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the queue; Enqueue drops events beyond it.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an event to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEventDropped(DropClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordEventDropped(DropCanceled)
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordEventEnqueued()
		metrics.UpdateQueueSize(len(q.events))
		return true
	default:
		metrics.RecordEventDropped(DropFull)
		return false
	}
}

// Dequeue returns the events channel. Every caller shares it, so each event
// reaches exactly one consumer.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Event {
	return q.events
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
