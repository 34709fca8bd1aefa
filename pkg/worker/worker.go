package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/wizflow/internal/taskqueue"
	"github.com/petrijr/wizflow/pkg/api"
)

// Config controls retries of failed tasks.
type Config struct {
	// MaxAttempts is the total number of tries per task. Defaults to 3.
	MaxAttempts int
	// Backoff is multiplied by the attempt number to delay a retry.
	// Defaults to 100ms.
	Backoff time.Duration
	// Logger receives task failures. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Worker pulls submission tasks from a Queue and applies them with an Engine.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	cfg    Config
}

// New creates a Worker with the default Config.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return NewWithConfig(engine, queue, Config{})
}

// NewWithConfig creates a Worker.
func NewWithConfig(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	return &Worker{engine: engine, queue: queue, cfg: cfg.withDefaults()}
}

// EnqueueSubmission queues values for stepID of wizardID on behalf of actor
// and returns the task id.
func (w *Worker) EnqueueSubmission(ctx context.Context, wizardID string, actor api.Actor, stepID string, values map[string]any) (string, error) {
	return w.EnqueueSubmissionAt(ctx, wizardID, actor, stepID, values, time.Time{})
}

// EnqueueSubmissionAt is like EnqueueSubmission but the task is not run
// before at.
func (w *Worker) EnqueueSubmissionAt(ctx context.Context, wizardID string, actor api.Actor, stepID string, values map[string]any, at time.Time) (string, error) {
	t := taskqueue.Task{
		ID:         taskqueue.NewTaskID(),
		WizardID:   wizardID,
		StepID:     stepID,
		Actor:      actor,
		Values:     values,
		EnqueuedAt: time.Now().UTC(),
		NotBefore:  at,
	}
	if err := w.queue.Enqueue(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// ProcessOne pulls a single task from the queue and runs it.
// Returns (processed, error):
//   - processed == false: no task was obtained (ctx ended or the queue failed).
//   - processed == true, err == nil: the update succeeded, or a retry was scheduled.
//   - processed == true, err != nil: the task failed for good.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	err = w.apply(ctx, task)
	if err == nil {
		return true, nil
	}

	attempt := task.Attempts + 1
	if !retryable(err) || attempt >= w.cfg.MaxAttempts {
		return true, fmt.Errorf("task %s (wizard %s step %s) failed after %d attempt(s): %w",
			task.ID, task.WizardID, task.StepID, attempt, err)
	}

	retry := *task
	retry.Attempts = attempt
	retry.NotBefore = time.Now().Add(time.Duration(attempt) * w.cfg.Backoff)
	if qerr := w.queue.Enqueue(ctx, retry); qerr != nil {
		return true, fmt.Errorf("requeue task %s: %w (after %v)", task.ID, qerr, err)
	}
	w.cfg.Logger.Warn("submission task rescheduled",
		"task", task.ID, "wizard", task.WizardID, "step", task.StepID,
		"attempt", attempt, "error", err)
	return true, nil
}

func (w *Worker) apply(ctx context.Context, task *taskqueue.Task) error {
	inst, err := w.engine.Build(ctx, task.WizardID, task.Actor)
	if err != nil {
		return err
	}
	res, err := w.engine.CreateUpdater(inst, task.StepID, task.Values).Update(ctx)
	if err != nil && res != nil {
		// Actions already ran; running them again would duplicate effects.
		return &partialError{err: err}
	}
	return err
}

// Run processes tasks until ctx ends. Task failures are logged, not returned.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}
		if !processed {
			// The queue itself failed; avoid spinning on it.
			w.cfg.Logger.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.Backoff):
			}
			continue
		}
		w.cfg.Logger.Error("submission task failed", "error", err)
	}
}

type partialError struct{ err error }

func (e *partialError) Error() string { return "update partially applied: " + e.err.Error() }
func (e *partialError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var partial *partialError
	if errors.As(err, &partial) {
		return false
	}
	if _, ok := api.IsValidationError(err); ok {
		return false
	}
	for _, permanent := range []error{
		api.ErrRequiresLogin,
		api.ErrNotPermitted,
		api.ErrAlreadyCompleted,
		api.ErrUnknownStep,
		api.ErrDefinitionNotFound,
		context.Canceled,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}
