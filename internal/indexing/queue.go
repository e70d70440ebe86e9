package indexing

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned by Submit when the bounded channel has no
// spare capacity.
var ErrQueueFull = errors.New("indexing: queue is full")

// ErrQueueClosed is returned by Submit after Close has been called.
var ErrQueueClosed = errors.New("indexing: queue is closed")

// EmbeddingFailureError marks an error as originating from the
// embedding step, as opposed to any other failure in the handler (e.g.
// a vector store error), which the queue treats as terminal and
// non-retriable.
type EmbeddingFailureError struct {
	Err error
}

func (e *EmbeddingFailureError) Error() string { return "indexing: embedding failed: " + e.Err.Error() }
func (e *EmbeddingFailureError) Unwrap() error { return e.Err }

// Handler processes one Task, e.g. by calling IndexingService.index_message.
type Handler func(ctx context.Context, task Task) error

// QueueStats reports the queue's current counters.
type QueueStats struct {
	Pending   int64
	Completed int64
	Failed    int64
	Retries   int64
}

// Queue is a bounded, channel-backed task queue with a single
// background worker. The task channel is never closed: shutdown is
// driven by context cancellation and a pending-count drain, which
// avoids a send-on-closed-channel race between Close and an in-flight
// retry re-enqueue.
type Queue struct {
	tasks   chan Task
	handler Handler

	pending   int64
	completed int64
	failed    int64
	retries   int64

	closed int32
	done   chan struct{}
}

// NewQueue builds a Queue with the given channel capacity and starts its
// worker goroutine against ctx.
func NewQueue(ctx context.Context, capacity int, handler Handler) *Queue {
	q := &Queue{
		tasks:   make(chan Task, capacity),
		handler: handler,
		done:    make(chan struct{}),
	}
	go q.run(ctx)
	return q
}

// Submit enqueues task, returning ErrQueueFull if the channel has no
// spare capacity and ErrQueueClosed once Close has been called.
func (q *Queue) Submit(task Task) error {
	if atomic.LoadInt32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		atomic.AddInt64(&q.pending, 1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.process(ctx, task)
		}
	}
}

func (q *Queue) process(ctx context.Context, task Task) {
	err := q.handler(ctx, task)
	if err == nil {
		atomic.AddInt64(&q.completed, 1)
		atomic.AddInt64(&q.pending, -1)
		return
	}

	var embedErr *EmbeddingFailureError
	if !errors.As(err, &embedErr) {
		atomic.AddInt64(&q.failed, 1)
		atomic.AddInt64(&q.pending, -1)
		return
	}

	task.Attempts++
	if !task.CanRetry() {
		atomic.AddInt64(&q.failed, 1)
		atomic.AddInt64(&q.pending, -1)
		return
	}

	atomic.AddInt64(&q.retries, 1)
	select {
	case q.tasks <- task:
		// Re-enqueued; it is still pending, so the counter is unchanged.
	default:
		atomic.AddInt64(&q.failed, 1)
		atomic.AddInt64(&q.pending, -1)
	}
}

// Stats returns a snapshot of the queue's counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   atomic.LoadInt64(&q.pending),
		Completed: atomic.LoadInt64(&q.completed),
		Failed:    atomic.LoadInt64(&q.failed),
		Retries:   atomic.LoadInt64(&q.retries),
	}
}

// Close stops accepting new tasks (further Submit calls fail) and
// blocks until the pending count drains to zero, the worker stops, or
// ctx is done first, whichever happens first.
func (q *Queue) Close(ctx context.Context) error {
	atomic.StoreInt32(&q.closed, 1)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if atomic.LoadInt64(&q.pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case <-ticker.C:
		}
	}
}
