package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

//
// Helpers
//

// testObserver is a simple Observer implementation used to verify fan-out behavior.
type testObserver struct {
	mu sync.Mutex

	builds      int
	steps       int
	actions     int
	completes   int
	conditions  int
	lastInst    *WizardInstance
	lastStep    string
	lastAction  string
	lastErr     error
	lastWizard  string
	lastCondErr *ConditionError
}

func (o *testObserver) OnBuild(ctx context.Context, inst *WizardInstance) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.builds++
	o.lastInst = inst
}

func (o *testObserver) OnStepSubmitted(ctx context.Context, inst *WizardInstance, stepID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps++
	o.lastStep = stepID
}

func (o *testObserver) OnActionCompleted(ctx context.Context, inst *WizardInstance, actionID string, kind ActionKind, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions++
	o.lastAction = actionID
	o.lastErr = err
}

func (o *testObserver) OnWizardCompleted(ctx context.Context, inst *WizardInstance) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes++
}

func (o *testObserver) OnConditionFailure(ctx context.Context, wizardID string, err *ConditionError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conditions++
	o.lastWizard = wizardID
	o.lastCondErr = err
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func newTestInstance() *WizardInstance {
	return &WizardInstance{
		WizardID: "welcome",
		Actor:    Actor{ID: "1", Username: "angus"},
		Access:   AccessGranted,
	}
}

//
// NoopObserver
//

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	inst := newTestInstance()
	var o Observer = NoopObserver{}

	o.OnBuild(ctx, inst)
	o.OnStepSubmitted(ctx, inst, "step_1")
	o.OnActionCompleted(ctx, inst, "1", ActionCreateTopic, errors.New("boom"), time.Second)
	o.OnWizardCompleted(ctx, inst)
	o.OnConditionFailure(ctx, "welcome", &ConditionError{Err: errors.New("bad")})
}

//
// CompositeObserver
//

func TestNewCompositeObserver_EmptyReturnsNoop(t *testing.T) {
	o := NewCompositeObserver()
	if _, ok := o.(NoopObserver); !ok {
		t.Fatalf("expected NewCompositeObserver() to return NoopObserver, got %T", o)
	}
}

func TestNewCompositeObserver_SingleReturnsThatObserver(t *testing.T) {
	single := &testObserver{}
	o := NewCompositeObserver(single, nil)

	if got, ok := o.(*testObserver); !ok || got != single {
		t.Fatalf("expected the single non-nil observer to be returned, got %T (%p)", o, o)
	}
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()
	inst := newTestInstance()

	o1 := &testObserver{}
	o2 := &testObserver{}
	co, ok := NewCompositeObserver(o1, o2).(*CompositeObserver)
	if !ok {
		t.Fatalf("expected *CompositeObserver")
	}

	err := errors.New("action failed")
	cerr := &ConditionError{Scope: "step step_2", Err: errors.New("unknown operator")}
	co.OnBuild(ctx, inst)
	co.OnStepSubmitted(ctx, inst, "step_1")
	co.OnActionCompleted(ctx, inst, "1", ActionCreateTopic, err, time.Second)
	co.OnWizardCompleted(ctx, inst)
	co.OnConditionFailure(ctx, "welcome", cerr)

	for i, o := range []*testObserver{o1, o2} {
		if o.builds != 1 || o.steps != 1 || o.actions != 1 || o.completes != 1 || o.conditions != 1 {
			t.Fatalf("observer %d did not receive all calls: %+v", i+1, o)
		}
		if o.lastInst != inst || o.lastStep != "step_1" || o.lastAction != "1" || o.lastErr != err {
			t.Fatalf("observer %d argument mismatch: %+v", i+1, o)
		}
		if o.lastWizard != "welcome" || o.lastCondErr != cerr {
			t.Fatalf("observer %d condition mismatch", i+1)
		}
	}
}

//
// LoggingObserver
//

func TestNewLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	lo, ok := NewLoggingObserver(nil).(*LoggingObserver)
	if !ok {
		t.Fatalf("expected *LoggingObserver")
	}
	if lo.Logger == nil {
		t.Fatalf("expected non-nil Logger when created with nil")
	}
}

func TestLoggingObserver_StepSubmitted_EmitsInfoLog(t *testing.T) {
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnStepSubmitted(context.Background(), newTestInstance(), "step_1")

	if len(h.records) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(h.records))
	}
	rec := h.records[0]
	if rec.Level != slog.LevelInfo || rec.Message != "step_submitted" {
		t.Fatalf("unexpected record: %v %q", rec.Level, rec.Message)
	}
	attrs := attrsToMap(rec)
	if attrs["wizard"] != "welcome" || attrs["user"] != "angus" || attrs["step"] != "step_1" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
}

func TestLoggingObserver_ActionLevelDependsOnError(t *testing.T) {
	ctx := context.Background()
	inst := newTestInstance()
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnActionCompleted(ctx, inst, "ok", ActionRouteTo, nil, time.Millisecond)
	o.OnActionCompleted(ctx, inst, "bad", ActionAddToGroup, errors.New("boom"), time.Millisecond)

	if len(h.records) != 2 {
		t.Fatalf("expected 2 log records, got %d", len(h.records))
	}
	if h.records[0].Level != slog.LevelDebug {
		t.Fatalf("expected success record LevelDebug, got %v", h.records[0].Level)
	}
	if h.records[1].Level != slog.LevelWarn {
		t.Fatalf("expected failure record LevelWarn, got %v", h.records[1].Level)
	}
	attrs := attrsToMap(h.records[1])
	if attrs["action"] != "bad" || attrs["kind"] != "add_to_group" || attrs["error"] == nil {
		t.Fatalf("unexpected failure attrs: %v", attrs)
	}
}

func TestLoggingObserver_ConditionFailureIsError(t *testing.T) {
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnConditionFailure(context.Background(), "welcome", &ConditionError{Scope: "field f", Err: errors.New("bad")})

	if len(h.records) != 1 || h.records[0].Level != slog.LevelError {
		t.Fatalf("expected one error record, got %+v", h.records)
	}
	if attrsToMap(h.records[0])["scope"] != "field f" {
		t.Fatalf("scope attribute missing")
	}
}

//
// BasicMetrics
//

func TestBasicMetrics_CountersAndSnapshot(t *testing.T) {
	var m BasicMetrics
	ctx := context.Background()
	inst := newTestInstance()

	m.OnBuild(ctx, inst)
	m.OnBuild(ctx, inst)
	m.OnStepSubmitted(ctx, inst, "step_1")
	m.OnWizardCompleted(ctx, inst)
	m.OnConditionFailure(ctx, "welcome", &ConditionError{Err: errors.New("bad")})

	// Only successful actions count towards the average duration.
	m.OnActionCompleted(ctx, inst, "1", ActionRouteTo, nil, 1*time.Second)
	m.OnActionCompleted(ctx, inst, "2", ActionRouteTo, nil, 3*time.Second)
	m.OnActionCompleted(ctx, inst, "3", ActionRouteTo, errors.New("fail"), 10*time.Second)

	snap := m.Snapshot()
	want := BasicMetricsSnapshot{
		Builds:            2,
		StepsSubmitted:    1,
		WizardsCompleted:  1,
		ActionsSucceeded:  2,
		ActionsFailed:     1,
		ConditionFailures: 1,
		AvgActionDuration: 2 * time.Second,
	}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestBasicMetrics_SnapshotZeroActionsHasZeroAverage(t *testing.T) {
	var m BasicMetrics
	if snap := m.Snapshot(); snap.AvgActionDuration != 0 {
		t.Fatalf("AvgActionDuration=%v, want 0", snap.AvgActionDuration)
	}
}
