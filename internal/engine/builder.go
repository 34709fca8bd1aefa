package engine

import (
	"context"

	"github.com/petrijr/wizflow/internal/condition"
	"github.com/petrijr/wizflow/internal/interpolate"
	"github.com/petrijr/wizflow/pkg/api"
)

// Build resolves a definition against the actor's submission so far. It only
// reads: malformed conditions go to the observer, never to the log.
func (e *engineImpl) Build(ctx context.Context, wizardID string, actor api.Actor) (*api.WizardInstance, error) {
	def, err := e.GetDefinition(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	rec, err := e.loadRecord(ctx, wizardID, userKey(actor))
	if err != nil {
		return nil, err
	}

	inst := buildInstance(def, rec, actor, e.reporter(ctx, wizardID))
	e.observer.OnBuild(ctx, inst)
	return inst, nil
}

// buildInstance is the pure part of Build.
func buildInstance(def api.WizardDefinition, rec *api.SubmissionRecord, actor api.Actor, report func(*api.ConditionError)) *api.WizardInstance {
	ictx := interpolate.NewContext(rec, actor)

	inst := &api.WizardInstance{
		WizardID:   def.ID,
		Name:       def.DisplayName(),
		Background: def.Background,
		Actor:      actor,
		Steps:      activeSteps(def, ictx, report),
	}
	inst.Completed = rec.Completed || allSubmitted(inst.Steps, rec)

	for _, s := range inst.Steps {
		if !rec.HasStep(s.ID) {
			inst.CurrentStep = s.ID
			break
		}
	}
	if inst.CurrentStep == "" && def.MultipleSubmissions && len(inst.Steps) > 0 {
		inst.CurrentStep = inst.Steps[0].ID
	}

	switch {
	case actor.Anonymous() && !def.AllowAnonymous:
		inst.Access = api.AccessRequiresLogin
	case def.Permitted != nil && !condition.Active(def.Permitted, ictx, "permitted", report):
		inst.Access = api.AccessNotPermitted
	case inst.Completed && !def.MultipleSubmissions:
		inst.Access = api.AccessCompleted
	default:
		inst.Access = api.AccessGranted
	}
	return inst
}

// activeSteps returns the steps whose condition holds, each carrying only its
// active fields, in definition order.
func activeSteps(def api.WizardDefinition, ictx interpolate.Context, report func(*api.ConditionError)) []api.StepDefinition {
	var steps []api.StepDefinition
	for _, s := range def.Steps {
		if !condition.Active(s.Condition, ictx, "step "+s.ID, report) {
			continue
		}
		active := s
		active.Fields = nil
		for _, f := range s.Fields {
			if condition.Active(f.Condition, ictx, "field "+f.ID, report) {
				active.Fields = append(active.Fields, f)
			}
		}
		steps = append(steps, active)
	}
	return steps
}

func allSubmitted(steps []api.StepDefinition, rec *api.SubmissionRecord) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if !rec.HasStep(s.ID) {
			return false
		}
	}
	return true
}

// nextStep returns the first active step after stepID in definition order,
// or "" when stepID is the last one. It also works when stepID itself is no
// longer active.
func nextStep(def api.WizardDefinition, active []api.StepDefinition, stepID string) string {
	isActive := make(map[string]bool, len(active))
	for _, s := range active {
		isActive[s.ID] = true
	}
	passed := false
	for _, s := range def.Steps {
		if s.ID == stepID {
			passed = true
			continue
		}
		if passed && isActive[s.ID] {
			return s.ID
		}
	}
	return ""
}
