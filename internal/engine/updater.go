package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/wizflow/internal/actions"
	"github.com/petrijr/wizflow/internal/condition"
	"github.com/petrijr/wizflow/internal/interpolate"
	"github.com/petrijr/wizflow/pkg/api"
)

const (
	logSubmitStep       = "submit_step"
	logConditionFailure = "condition_failure"
)

type updater struct {
	e      *engineImpl
	inst   *api.WizardInstance
	stepID string
	values map[string]any
}

func (e *engineImpl) CreateUpdater(inst *api.WizardInstance, stepID string, values map[string]any) api.Updater {
	return &updater{e: e, inst: inst, stepID: stepID, values: values}
}

// Update validates and stores the submission, runs the step's actions and
// decides where the user goes next.
//
// Errors returned with a nil result mean nothing was changed. A non-nil
// result with an error means the submission was stored and actions ran, but
// writing their outputs or the audit log failed.
func (u *updater) Update(ctx context.Context) (*api.UpdateResult, error) {
	e, inst := u.e, u.inst
	if inst == nil {
		return nil, errors.New("update without a built wizard instance")
	}

	switch inst.Access {
	case api.AccessRequiresLogin:
		return nil, api.ErrRequiresLogin
	case api.AccessNotPermitted:
		return nil, api.ErrNotPermitted
	case api.AccessCompleted:
		return nil, api.ErrAlreadyCompleted
	}

	step, ok := inst.Step(u.stepID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in wizard %s", api.ErrUnknownStep, u.stepID, inst.WizardID)
	}
	values, err := narrowValues(step, u.values)
	if err != nil {
		return nil, err
	}

	def, err := e.GetDefinition(ctx, inst.WizardID)
	if err != nil {
		return nil, err
	}
	defStep, ok := def.Step(u.stepID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in wizard %s", api.ErrUnknownStep, u.stepID, inst.WizardID)
	}

	key := userKey(inst.Actor)
	unlock := e.locks.Lock(inst.WizardID + "\x00" + key)
	defer unlock()

	rec, err := e.loadRecord(ctx, inst.WizardID, key)
	if err != nil {
		return nil, err
	}
	if rec.Completed {
		if !def.MultipleSubmissions {
			return nil, api.ErrAlreadyCompleted
		}
		// A completed run starts over; values are kept.
		rec.Completed = false
		rec.Steps = nil
		rec.RedirectOnComplete = ""
	}

	rec.Merge(u.stepID, values)
	if err := e.saveRecord(ctx, rec, key); err != nil {
		return nil, err
	}
	savedRedirect := rec.RedirectOnComplete
	e.observer.OnStepSubmitted(ctx, inst, u.stepID)

	result := &api.UpdateResult{
		WizardID: inst.WizardID,
		StepID:   u.stepID,
		Outputs:  make(map[string]any),
	}
	ictx := interpolate.NewContext(rec, inst.Actor)
	report := e.reporter(ctx, inst.WizardID)
	username := actorName(inst.Actor)

	var entries []api.LogEntry
	for _, ad := range defStep.Actions {
		active, err := condition.Evaluate(ad.Condition, ictx)
		var ce *api.ConditionError
		if errors.As(err, &ce) {
			ce = &api.ConditionError{Scope: "action " + ad.ID, Err: ce.Err}
			report(ce)
			entries = append(entries, api.NewLogEntry(inst.WizardID, logConditionFailure, username, ce.Error()))
			continue
		}
		if !active {
			continue
		}
		entries = append(entries, u.runAction(ctx, ad, ictx, rec, result))
	}

	// Navigation is decided against the merged record, so conditions that
	// depend on this step (or its action outputs) already apply.
	next := nextStep(def, activeSteps(def, ictx, report), u.stepID)
	if defStep.ForceFinalStep || next == "" {
		rec.Completed = true
		result.Completed = true
		if result.RedirectOnComplete == "" {
			result.RedirectOnComplete = rec.RedirectOnComplete
		}
	}
	switch {
	case result.RedirectOnNext != "":
		result.Navigation = api.Navigation{Kind: api.NavigateRedirect, URL: result.RedirectOnNext}
	case result.Completed && result.RedirectOnComplete != "":
		result.Navigation = api.Navigation{Kind: api.NavigateRedirect, URL: result.RedirectOnComplete}
	case result.Completed:
		result.Navigation = api.Navigation{Kind: api.NavigateComplete}
	default:
		result.Navigation = api.Navigation{Kind: api.NavigateNext, StepID: next}
	}

	if len(result.Outputs) > 0 || rec.Completed || rec.RedirectOnComplete != savedRedirect {
		if err := e.saveRecord(ctx, rec, key); err != nil {
			return result, err
		}
	}
	if result.Completed {
		e.observer.OnWizardCompleted(ctx, inst)
	}

	if len(entries) == 0 {
		entries = append(entries, api.NewLogEntry(inst.WizardID, logSubmitStep, username, "submitted step "+u.stepID))
	}
	for i := range entries {
		if err := e.logs.AppendLog(ctx, &entries[i]); err != nil {
			return result, fmt.Errorf("append log: %w", err)
		}
	}
	return result, nil
}

// runAction executes one active action, folds its outcome into the record
// and the result, and returns the matching log entry.
func (u *updater) runAction(ctx context.Context, ad api.ActionDefinition, ictx interpolate.Context, rec *api.SubmissionRecord, result *api.UpdateResult) api.LogEntry {
	e, inst := u.e, u.inst

	start := time.Now()
	var (
		out actions.Outcome
		err error
	)
	act, err := actions.Decode(ad)
	if err == nil {
		out, err = act.Execute(ctx, actions.Env{Actor: inst.Actor, Context: ictx, Platform: e.platform})
	}
	e.observer.OnActionCompleted(ctx, inst, ad.ID, ad.Kind, err, time.Since(start))

	result.ActionErrors = append(result.ActionErrors, out.Errors...)
	message := out.Message
	if err != nil {
		ae := &api.ActionError{ActionID: ad.ID, Kind: ad.Kind, Err: err}
		result.ActionErrors = append(result.ActionErrors, ae)
		message = ae.Error()
	} else if len(out.Errors) > 0 {
		message = fmt.Sprintf("%s (%d partial failure(s))", message, len(out.Errors))
	}

	if out.Value != nil {
		// rec.Values backs ictx, so later actions see the output at once.
		rec.Values[ad.Token()] = out.Value
		result.Outputs[ad.Token()] = out.Value
	}
	if out.RedirectOnNext != "" {
		result.RedirectOnNext = out.RedirectOnNext
	}
	if out.RedirectOnComplete != "" {
		result.RedirectOnComplete = out.RedirectOnComplete
		rec.RedirectOnComplete = out.RedirectOnComplete
	}

	return api.NewLogEntry(inst.WizardID, string(ad.Kind), actorName(inst.Actor), message)
}

// saveRecord writes rec at its current version. Runs of anonymous actors
// without a session key are not persisted.
func (e *engineImpl) saveRecord(ctx context.Context, rec *api.SubmissionRecord, key string) error {
	if key == "" {
		rec.Version++
		return nil
	}
	if err := e.submissions.SaveSubmission(ctx, rec, rec.Version); err != nil {
		if errors.Is(err, api.ErrPersistenceConflict) {
			return fmt.Errorf("%w: wizard %s user %s", err, rec.WizardID, rec.UserID)
		}
		return err
	}
	return nil
}

func actorName(a api.Actor) string {
	if a.Anonymous() {
		return "anonymous"
	}
	return a.Username
}
