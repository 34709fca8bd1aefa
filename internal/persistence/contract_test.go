package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/wizflow/pkg/api"
)

// runStoreContract exercises the behaviour every backend must share.
// fresh must return an empty Persistence on every call.
func runStoreContract(t *testing.T, fresh func(t *testing.T) Persistence) {
	t.Run("definitions", func(t *testing.T) { testDefinitions(t, fresh(t)) })
	t.Run("submissions", func(t *testing.T) { testSubmissions(t, fresh(t)) })
	t.Run("submission conflicts", func(t *testing.T) { testSubmissionConflicts(t, fresh(t)) })
	t.Run("logs", func(t *testing.T) { testLogs(t, fresh(t)) })
	t.Run("concurrent log appends", func(t *testing.T) { testConcurrentLogs(t, fresh(t)) })
}

func sampleDefinition(id string) api.WizardDefinition {
	return api.WizardDefinition{
		ID:   id,
		Name: "Wizard " + id,
		Steps: []api.StepDefinition{{
			ID:     "step_1",
			Fields: []api.FieldDefinition{{ID: "step_1_field_1", Type: api.FieldText, Required: true}},
			Actions: []api.ActionDefinition{{
				ID:     "route",
				Kind:   api.ActionRouteTo,
				Params: map[string]any{"url": "https://example.com/w{step_1_field_1}"},
			}},
		}},
	}
}

func testDefinitions(t *testing.T, p Persistence) {
	ctx := context.Background()
	store := p.Definitions

	_, err := store.GetDefinition(ctx, "missing")
	assert.True(t, errors.Is(err, api.ErrDefinitionNotFound), "got %v", err)

	require.NoError(t, store.SaveDefinition(ctx, sampleDefinition("b")))
	require.NoError(t, store.SaveDefinition(ctx, sampleDefinition("a")))

	got, err := store.GetDefinition(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Wizard a", got.Name)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, api.ActionRouteTo, got.Steps[0].Actions[0].Kind)
	assert.Equal(t, "https://example.com/w{step_1_field_1}", got.Steps[0].Actions[0].Params["url"])

	updated := sampleDefinition("a")
	updated.Name = "Renamed"
	require.NoError(t, store.SaveDefinition(ctx, updated))

	list, err := store.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "Renamed", list[0].Name)
	assert.Equal(t, "b", list[1].ID)

	require.NoError(t, store.DeleteDefinition(ctx, "a"))
	require.NoError(t, store.DeleteDefinition(ctx, "a"))
	_, err = store.GetDefinition(ctx, "a")
	assert.True(t, errors.Is(err, api.ErrDefinitionNotFound))
}

func testSubmissions(t *testing.T, p Persistence) {
	ctx := context.Background()
	store := p.Submissions

	_, err := store.GetSubmission(ctx, "w1", "u1")
	assert.True(t, errors.Is(err, ErrSubmissionNotFound), "got %v", err)

	rec := api.NewSubmissionRecord("w1", "u1")
	rec.Merge("step_1", map[string]any{
		"step_1_field_1": "hello",
		"step_1_field_2": float64(3),
		"step_1_field_3": map[string]any{"id": float64(7), "url": "/uploads/a.png"},
	})
	require.NoError(t, store.SaveSubmission(ctx, rec, 0))
	assert.Equal(t, int64(1), rec.Version)
	assert.False(t, rec.UpdatedAt.IsZero())

	got, err := store.GetSubmission(ctx, "w1", "u1")
	require.NoError(t, err)
	assert.Equal(t, rec.Values, got.Values)
	assert.Equal(t, []string{"step_1"}, got.Steps)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.History, 1)
	assert.Equal(t, int64(1), got.History[0].Version)

	got.Merge("step_2", map[string]any{"step_2_field_1": "x"})
	got.Completed = true
	require.NoError(t, store.SaveSubmission(ctx, got, 1))
	assert.Equal(t, int64(2), got.Version)

	for _, key := range [][2]string{{"w1", "u2"}, {"w2", "u1"}} {
		other := api.NewSubmissionRecord(key[0], key[1])
		other.Merge("step_1", map[string]any{"step_1_field_1": key[1]})
		require.NoError(t, store.SaveSubmission(ctx, other, 0))
	}

	w1, err := store.ListSubmissions(ctx, SubmissionFilter{WizardID: "w1"})
	require.NoError(t, err)
	require.Len(t, w1, 2)
	assert.Equal(t, "u1", w1[0].UserID)
	assert.True(t, w1[0].Completed)
	assert.Equal(t, "u2", w1[1].UserID)

	all, err := store.ListSubmissions(ctx, SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "w2", all[2].WizardID)
}

func testSubmissionConflicts(t *testing.T, p Persistence) {
	ctx := context.Background()
	store := p.Submissions

	first := api.NewSubmissionRecord("w1", "u1")
	first.Merge("step_1", map[string]any{"a": "1"})
	require.NoError(t, store.SaveSubmission(ctx, first, 0))

	duplicate := api.NewSubmissionRecord("w1", "u1")
	duplicate.Merge("step_1", map[string]any{"a": "2"})
	err := store.SaveSubmission(ctx, duplicate, 0)
	assert.True(t, errors.Is(err, api.ErrPersistenceConflict), "got %v", err)
	assert.Equal(t, int64(0), duplicate.Version)

	require.NoError(t, store.SaveSubmission(ctx, first, 1))

	stale := api.NewSubmissionRecord("w1", "u1")
	err = store.SaveSubmission(ctx, stale, 1)
	assert.True(t, errors.Is(err, api.ErrPersistenceConflict), "got %v", err)

	got, err := store.GetSubmission(ctx, "w1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "1", got.Values["a"])
}

func testLogs(t *testing.T, p Persistence) {
	ctx := context.Background()
	store := p.Logs

	for i := 1; i <= 5; i++ {
		e := api.NewLogEntry("w1", "create_topic", "angus", fmt.Sprintf("entry %d", i))
		require.NoError(t, store.AppendLog(ctx, &e))
		assert.Equal(t, int64(i), e.Seq)
	}

	page, err := store.ListLogs(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "entry 5", page[0].Message)
	assert.Equal(t, "entry 3", page[2].Message)
	assert.Equal(t, "w1", page[0].WizardID)
	assert.Equal(t, "angus", page[0].User)
	assert.NotEmpty(t, page[0].ID)
	assert.False(t, page[0].CreatedAt.IsZero())

	rest, err := store.ListLogs(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "entry 1", rest[1].Message)

	empty, err := store.ListLogs(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testConcurrentLogs(t *testing.T, p Persistence) {
	ctx := context.Background()
	store := p.Logs

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := api.NewLogEntry("w1", "submit_step", fmt.Sprintf("user%d", i), "submitted step step_1")
			errs <- store.AppendLog(ctx, &e)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	page, err := store.ListLogs(ctx, 0, n)
	require.NoError(t, err)
	require.Len(t, page, n)
	for i, e := range page {
		assert.Equal(t, int64(n-i), e.Seq, "position %d", i)
	}
}
