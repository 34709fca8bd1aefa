package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay step submissions.
type Observer interface {
	// OnBuild is called after a wizard instance has been resolved.
	OnBuild(ctx context.Context, inst *WizardInstance)

	// OnStepSubmitted is called once the step's values have been committed,
	// before any action runs.
	OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string)

	// OnActionCompleted is called after each executed action, for both
	// successes and failures (err != nil).
	OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, duration time.Duration)

	// OnWizardCompleted is called when an update marks the wizard completed.
	OnWizardCompleted(ctx context.Context, inst *WizardInstance)

	// OnConditionFailure is called when a malformed condition was treated as false.
	OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnBuild(ctx context.Context, inst *WizardInstance)                         {}
func (NoopObserver) OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string) {}
func (NoopObserver) OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, d time.Duration) {
}
func (NoopObserver) OnWizardCompleted(ctx context.Context, inst *WizardInstance)                     {}
func (NoopObserver) OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnBuild(ctx context.Context, inst *WizardInstance) {
	for _, o := range c.observers {
		o.OnBuild(ctx, inst)
	}
}

func (c *CompositeObserver) OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string) {
	for _, o := range c.observers {
		o.OnStepSubmitted(ctx, inst, stepID)
	}
}

func (c *CompositeObserver) OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActionCompleted(ctx, inst, actionID, kind, err, d)
	}
}

func (c *CompositeObserver) OnWizardCompleted(ctx context.Context, inst *WizardInstance) {
	for _, o := range c.observers {
		o.OnWizardCompleted(ctx, inst)
	}
}

func (c *CompositeObserver) OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError) {
	for _, o := range c.observers {
		o.OnConditionFailure(ctx, wizardID, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs engine events using the
// provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnBuild(ctx context.Context, inst *WizardInstance) {
	o.Logger.DebugContext(ctx, "wizard_built",
		slog.String("wizard", inst.WizardID),
		slog.String("user", inst.Actor.Username),
		slog.Int("active_steps", len(inst.Steps)),
		slog.String("current_step", inst.CurrentStep),
		slog.String("access", string(inst.Access)),
	)
}

func (o *LoggingObserver) OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string) {
	o.Logger.InfoContext(ctx, "step_submitted",
		slog.String("wizard", inst.WizardID),
		slog.String("user", inst.Actor.Username),
		slog.String("step", stepID),
	)
}

func (o *LoggingObserver) OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "action_completed",
		slog.String("wizard", inst.WizardID),
		slog.String("user", inst.Actor.Username),
		slog.String("action", actionID),
		slog.String("kind", string(kind)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnWizardCompleted(ctx context.Context, inst *WizardInstance) {
	o.Logger.InfoContext(ctx, "wizard_completed",
		slog.String("wizard", inst.WizardID),
		slog.String("user", inst.Actor.Username),
	)
}

func (o *LoggingObserver) OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError) {
	o.Logger.ErrorContext(ctx, "condition_failure",
		slog.String("wizard", wizardID),
		slog.String("scope", err.Scope),
		slog.Any("error", err.Err),
	)
}

// BasicMetrics collects simple counters and aggregate action durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	builds              atomic.Int64
	stepsSubmitted      atomic.Int64
	wizardsCompleted    atomic.Int64
	actionsSucceeded    atomic.Int64
	actionsFailed       atomic.Int64
	conditionFailures   atomic.Int64
	totalActionDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Builds            int64
	StepsSubmitted    int64
	WizardsCompleted  int64
	ActionsSucceeded  int64
	ActionsFailed     int64
	ConditionFailures int64
	AvgActionDuration time.Duration
}

func (m *BasicMetrics) OnBuild(ctx context.Context, inst *WizardInstance) {
	m.builds.Add(1)
}

func (m *BasicMetrics) OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string) {
	m.stepsSubmitted.Add(1)
}

func (m *BasicMetrics) OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, d time.Duration) {
	if err != nil {
		m.actionsFailed.Add(1)
		return
	}
	m.actionsSucceeded.Add(1)
	m.totalActionDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnWizardCompleted(ctx context.Context, inst *WizardInstance) {
	m.wizardsCompleted.Add(1)
}

func (m *BasicMetrics) OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError) {
	m.conditionFailures.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	ok := m.actionsSucceeded.Load()
	totalNs := m.totalActionDuration.Load()

	var avg time.Duration
	if ok > 0 {
		avg = time.Duration(totalNs / ok)
	}

	return BasicMetricsSnapshot{
		Builds:            m.builds.Load(),
		StepsSubmitted:    m.stepsSubmitted.Load(),
		WizardsCompleted:  m.wizardsCompleted.Load(),
		ActionsSucceeded:  ok,
		ActionsFailed:     m.actionsFailed.Load(),
		ConditionFailures: m.conditionFailures.Load(),
		AvgActionDuration: avg,
	}
}
