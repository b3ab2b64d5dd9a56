package event

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO buffer for a single consumer. Enqueue never
// blocks; Next drains buffered items in insertion order before waiting for
// more. There is no close: the sequence ends when the consumer's context
// is cancelled.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	marker *Dirty
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{marker: NewDirty()}
}

// Enqueue appends items to the buffer and wakes the consumer.
func (q *Queue[T]) Enqueue(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()

	q.marker.Emit()
}

// Next returns the oldest buffered item, waiting for an Enqueue if the
// buffer is empty. It returns the context error on cancellation.
func (q *Queue[T]) Next(ctx context.Context) (T, error) {
	for {
		// register the waiter before checking the buffer so an Enqueue
		// racing with the check is not missed
		sig := q.marker.Signal()

		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-sig:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Drain removes and returns all currently buffered items without waiting.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}
