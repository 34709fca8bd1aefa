package taskqueue

import (
	"context"
	"time"
)

// InMemoryQueue is a Queue backed by a buffered channel. It is safe for
// concurrent use. Tasks are lost when the process exits.
//
// Enqueue stores a codec round trip of the task, so the caller may reuse its
// values map and a worker sees the value shapes a stored submission has.
//
// A dequeued task that is not due yet is held by the caller until its
// NotBefore passes, which delays tasks queued behind it.
type InMemoryQueue struct {
	ch chan Task
}

// NewInMemoryQueue creates a queue with the given capacity (1024 if <= 0).
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{ch: make(chan Task, capacity)}
}

var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now().UTC()
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	snapshot, err := DecodeTask(data)
	if err != nil {
		return err
	}
	select {
	case q.ch <- *snapshot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case t := <-q.ch:
		if err := waitUntil(ctx, t.NotBefore); err != nil {
			// Put it back so cancellation does not lose work.
			select {
			case q.ch <- t:
			default:
			}
			return nil, err
		}
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}
