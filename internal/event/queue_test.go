package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainsBufferedItemsInOrder(t *testing.T) {
	q := NewQueue[string]()
	q.Enqueue("a")
	q.Enqueue("b", "c")

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// buffer is now empty; subsequent enqueues are delivered individually
	done := make(chan string, 1)
	go func() {
		item, err := q.Next(ctx)
		if err == nil {
			done <- item
		}
	}()

	q.Enqueue("d")

	select {
	case item := <-done:
		assert.Equal(t, "d", item)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken by enqueue")
	}
}

func TestQueueNextReturnsOnCancel(t *testing.T) {
	q := NewQueue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Next(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after cancellation")
	}
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(1, 2, 3)

	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Empty(t, q.Drain(), "expected buffer to be empty after drain")
}
