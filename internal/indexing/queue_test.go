package indexing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskCanRetryFlipsAtMaxRetries(t *testing.T) {
	task := NewTask("t1", "hello", "room-1", nil)
	if task.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", task.MaxRetries)
	}
	for task.Attempts < task.MaxRetries {
		if !task.CanRetry() {
			t.Fatalf("expected CanRetry true at attempts=%d", task.Attempts)
		}
		task.Attempts++
	}
	if task.CanRetry() {
		t.Fatalf("expected CanRetry false once attempts reaches max_retries (%d)", task.MaxRetries)
	}
}

func waitForStats(t *testing.T, q *Queue, want func(QueueStats) bool) QueueStats {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := q.Stats()
		if want(stats) {
			return stats
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for expected stats, last seen: %+v", q.Stats())
	return QueueStats{}
}

func TestQueueSucceedsIncrementsCompleted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(ctx, 8, func(ctx context.Context, task Task) error { return nil })
	if err := q.Submit(NewTask("t1", "msg", "room", nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	stats := waitForStats(t, q, func(s QueueStats) bool { return s.Completed == 1 })
	if stats.Pending != 0 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestQueueRetriesEmbeddingFailureThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	handler := func(ctx context.Context, task Task) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return &EmbeddingFailureError{Err: errors.New("transient")}
		}
		return nil
	}
	q := NewQueue(ctx, 8, handler)
	if err := q.Submit(NewTask("t1", "msg", "room", nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	stats := waitForStats(t, q, func(s QueueStats) bool { return s.Completed == 1 })
	if stats.Retries != 1 {
		t.Fatalf("expected 1 retry, got %+v", stats)
	}
}

func TestQueueDropsAfterMaxRetriesAsFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, task Task) error {
		return &EmbeddingFailureError{Err: errors.New("always fails")}
	}
	q := NewQueue(ctx, 8, handler)
	task := NewTask("t1", "msg", "room", nil)
	task.MaxRetries = 2
	if err := q.Submit(task); err != nil {
		t.Fatalf("submit: %v", err)
	}
	stats := waitForStats(t, q, func(s QueueStats) bool { return s.Failed == 1 })
	if stats.Retries != 1 {
		t.Fatalf("expected 1 retry before giving up (the second failure reaches max_retries=2), got %+v", stats)
	}
	if stats.Completed != 0 {
		t.Fatalf("expected 0 completed, got %+v", stats)
	}
}

func TestQueueNonEmbeddingErrorDropsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, task Task) error {
		return errors.New("vector store unavailable")
	}
	q := NewQueue(ctx, 8, handler)
	if err := q.Submit(NewTask("t1", "msg", "room", nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	stats := waitForStats(t, q, func(s QueueStats) bool { return s.Failed == 1 })
	if stats.Retries != 0 {
		t.Fatalf("expected 0 retries for a non-embedding error, got %+v", stats)
	}
}

func TestQueueSubmitReturnsErrAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(ctx, 1, func(ctx context.Context, task Task) error { return nil })
	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	if err := q.Close(closeCtx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Submit(NewTask("t1", "msg", "room", nil)); err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueFullReturnsErrQueueFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	q := NewQueue(ctx, 1, func(ctx context.Context, task Task) error {
		<-block
		return nil
	})
	defer close(block)

	if err := q.Submit(NewTask("t1", "msg", "room", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Give the worker a moment to dequeue the first task so the channel
	// buffer is actually empty before we fill it to prove "full" rather
	// than racing the dequeue.
	time.Sleep(20 * time.Millisecond)
	if err := q.Submit(NewTask("t2", "msg", "room", nil)); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	err := q.Submit(NewTask("t3", "msg", "room", nil))
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
