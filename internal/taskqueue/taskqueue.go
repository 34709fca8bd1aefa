// Package taskqueue holds deferred step submissions in process until a
// worker runs them.
package taskqueue

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/petrijr/wizflow/pkg/api"
)

// Task is one queued step submission.
type Task struct {
	ID       string         `json:"id"`
	WizardID string         `json:"wizard_id"`
	StepID   string         `json:"step_id"`
	Actor    api.Actor      `json:"actor"`
	Values   map[string]any `json:"values,omitempty"`

	// Attempts counts how many times the task has been tried already.
	Attempts int `json:"attempts"`

	EnqueuedAt time.Time `json:"enqueued_at"`

	// NotBefore is the earliest time the task may be dequeued. Zero means
	// immediately.
	NotBefore time.Time `json:"not_before,omitempty"`
}

// NewTaskID returns a time-ordered task id. Ids made in the same
// millisecond still increase.
func NewTaskID() string {
	return ulid.Make().String()
}

// Queue is a FIFO of tasks ordered by NotBefore.
type Queue interface {
	// Enqueue adds a task. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next due task, blocking until one is
	// available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of queued tasks.
	Len() int
}

// waitUntil sleeps until at or until ctx ends.
func waitUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
