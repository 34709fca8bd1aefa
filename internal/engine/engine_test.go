package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/wizflow/internal/persistence"
	"github.com/petrijr/wizflow/internal/platform"
	"github.com/petrijr/wizflow/pkg/api"
)

var (
	angus  = api.Actor{ID: "1", Username: "angus", Name: "Angus", Email: "angus@email.com", TrustLevel: 1}
	angus1 = api.Actor{ID: "2", Username: "angus1", Name: "Angus One", TrustLevel: 3}
)

type fixture struct {
	engine   api.Engine
	store    *persistence.InMemoryStore
	platform *platform.Memory
	metrics  *api.BasicMetrics
}

func newFixture(t *testing.T, defs ...api.WizardDefinition) *fixture {
	t.Helper()

	store := persistence.NewInMemoryStore()
	p := platform.NewMemory(angus, angus1)
	metrics := &api.BasicMetrics{}
	eng := NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{Definitions: store, Submissions: store, Logs: store},
		Platform:    p,
		Observer:    metrics,
	})

	for _, def := range defs {
		require.NoError(t, eng.SaveDefinition(context.Background(), def))
	}
	return &fixture{engine: eng, store: store, platform: p, metrics: metrics}
}

func (f *fixture) build(t *testing.T, wizardID string, actor api.Actor) *api.WizardInstance {
	t.Helper()
	inst, err := f.engine.Build(context.Background(), wizardID, actor)
	require.NoError(t, err)
	return inst
}

// submit builds a fresh instance and submits values for stepID.
func (f *fixture) submit(t *testing.T, wizardID string, actor api.Actor, stepID string, values map[string]any) (*api.UpdateResult, error) {
	t.Helper()
	inst := f.build(t, wizardID, actor)
	return f.engine.CreateUpdater(inst, stepID, values).Update(context.Background())
}

func (f *fixture) record(t *testing.T, wizardID, userID string) *api.SubmissionRecord {
	t.Helper()
	rec, err := f.store.GetSubmission(context.Background(), wizardID, userID)
	require.NoError(t, err)
	return rec
}

func (f *fixture) logs(t *testing.T) []api.LogEntry {
	t.Helper()
	entries, err := f.engine.GetLog(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

func textField(id string, required bool) api.FieldDefinition {
	return api.FieldDefinition{ID: id, Type: api.FieldText, Required: required}
}

func twoStepTopicWizard() api.WizardDefinition {
	return api.WizardDefinition{
		ID:   "welcome",
		Name: "Welcome",
		Steps: []api.StepDefinition{
			{
				ID:     "step_1",
				Fields: []api.FieldDefinition{textField("step_1_field_1", true)},
			},
			{
				ID:     "step_2",
				Fields: []api.FieldDefinition{{ID: "step_2_field_1", Type: api.FieldTextarea, Required: true}},
				Actions: []api.ActionDefinition{{
					ID:   "1",
					Kind: api.ActionCreateTopic,
					Params: map[string]any{
						"title": "w{step_1_field_1}",
						"body":  "w{step_2_field_1}",
					},
				}},
			},
		},
	}
}
