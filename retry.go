package wizflow

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls how UpdateWithRetry retries conflicting updates.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries. <= 0 is treated as 1.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// BackoffMultiplier grows the delay after each retry. <= 0 means 1.
	BackoffMultiplier float64
	// MaxBackoff caps the delay; <= 0 means no cap.
	MaxBackoff time.Duration
}

func (p RetryPolicy) backoff(retry int) time.Duration {
	d := float64(p.InitialBackoff)
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	for i := 1; i < retry; i++ {
		d *= mult
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// RetryBuilder provides a fluent way to construct RetryPolicy values.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry creates a RetryBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: maxAttempts}}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
//
// Example:
//
//	Retry(3).WithExponentialBackoff(10*time.Millisecond, 2.0, 200*time.Millisecond)
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = initial
	p.MaxBackoff = max
	if multiplier <= 0 {
		multiplier = 2.0
	}
	p.BackoffMultiplier = multiplier
	return RetryBuilder{policy: p}
}

// WithConstantBackoff waits delay between retries.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = delay
	p.MaxBackoff = 0
	p.BackoffMultiplier = 1.0
	return RetryBuilder{policy: p}
}

// Immediate disables any sleep between retries.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.InitialBackoff = 0
	p.MaxBackoff = 0
	p.BackoffMultiplier = 0
	return RetryBuilder{policy: p}
}

// Policy returns the underlying RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}

// UpdateWithRetry builds the wizard for actor and submits values for stepID,
// starting over from a fresh Build while the update fails with
// ErrPersistenceConflict and nothing was applied. Any other error, and any
// error returned together with a result, ends the retries.
func UpdateWithRetry(ctx context.Context, eng Engine, wizardID string, actor Actor, stepID string, values map[string]any, policy RetryPolicy) (*UpdateResult, error) {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, policy.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		res, err := Submit(ctx, eng, wizardID, actor, stepID, values)
		if err == nil || res != nil || !errors.Is(err, ErrPersistenceConflict) {
			return res, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
