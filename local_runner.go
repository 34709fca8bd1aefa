package wizflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/petrijr/wizflow/internal/taskqueue"
	"github.com/petrijr/wizflow/pkg/worker"
)

// LocalRunner bundles an in-memory Engine, an in-memory task queue, and a
// Worker for development and debugging.
//
// Typical usage:
//
//	runner := wizflow.NewLocalRunner(wizflow.NewMemoryPlatform(users...))
//	wizflow.New("welcome").Step(...).MustSave(ctx, runner.Engine)
//
//	// Synchronous submission (no queue/worker involved):
//	res, err := wizflow.Submit(ctx, runner.Engine, "welcome", actor, "step_1", values)
//
//	// Deferred submission:
//	_ = runner.StartWorkers(ctx, 2)
//	id, _ := runner.SubmitAsync(ctx, "welcome", actor, "step_2", values)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory engine used by this runner.
	Engine Engine

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker applies submissions from Queue using Engine.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner over p with default worker config.
func NewLocalRunner(p Platform) *LocalRunner {
	return NewLocalRunnerWithObserver(p, nil)
}

// NewLocalRunnerWithObserver is like NewLocalRunner with an Observer on the
// engine.
func NewLocalRunnerWithObserver(p Platform, obs Observer) *LocalRunner {
	eng := NewInMemoryEngineWithObserver(p, obs)
	q := taskqueue.NewInMemoryQueue(1024)
	return &LocalRunner{
		Engine: eng,
		Queue:  q,
		Worker: worker.New(eng, q),
	}
}

// StartWorkers starts 'concurrency' goroutines that call Worker.ProcessOne
// until Stop is called or ctx ends.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("wizflow: LocalRunner already started")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				_, err := r.Worker.ProcessOne(ctx)
				if err == nil {
					continue
				}
				// Cancellation is a clean shutdown.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				// One bad task must not stop the loop.
				slog.Warn("wizflow: local runner task failed", "error", err)
			}
		}()
	}
	return nil
}

// Stop cancels the worker goroutines and waits for them to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// SubmitAsync enqueues a step submission and returns its task id. The
// wizard must already be saved on LocalRunner.Engine.
func (r *LocalRunner) SubmitAsync(ctx context.Context, wizardID string, actor Actor, stepID string, values map[string]any) (string, error) {
	return r.Worker.EnqueueSubmission(ctx, wizardID, actor, stepID, values)
}
