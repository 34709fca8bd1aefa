package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/wizflow/internal/engine"
	"github.com/petrijr/wizflow/internal/platform"
	"github.com/petrijr/wizflow/internal/taskqueue"
	"github.com/petrijr/wizflow/pkg/api"
	"github.com/petrijr/wizflow/pkg/worker"
)

var angus = api.Actor{ID: "1", Username: "angus", Name: "Angus"}

func welcome() api.WizardDefinition {
	return api.WizardDefinition{
		ID:   "welcome",
		Name: "Welcome",
		Steps: []api.StepDefinition{
			{ID: "step_1", Fields: []api.FieldDefinition{
				{ID: "step_1_field_1", Type: api.FieldText, Required: true},
			}},
			{ID: "step_2", Actions: []api.ActionDefinition{
				{ID: "1", Kind: api.ActionRouteTo, Params: map[string]any{"url": "/t/w{step_1_field_1}"}},
				{ID: "2", Kind: api.ActionAddToGroup, Params: map[string]any{"group": "ghosts"}},
			}},
		},
	}
}

type fixture struct {
	engine api.Engine
	echo   *echo.Echo
}

func newFixture(t *testing.T, w func(api.Engine) *worker.Worker) *fixture {
	t.Helper()
	eng := engine.NewInMemoryEngine(platform.NewMemory(angus))
	var wk *worker.Worker
	if w != nil {
		wk = w(eng)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{engine: eng, echo: NewServer(eng, wk, logger).Echo()}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestFieldTypes(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodGet, "/admin/wizards/field-types", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["field_types"], len(api.FieldTypes()))
}

func TestDefinitionLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodPut, "/admin/wizards", welcome())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "welcome", body["id"])

	rec, body = f.do(t, http.MethodGet, "/admin/wizards/welcome", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome", body["name"])

	rec, body = f.do(t, http.MethodGet, "/admin/wizards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["wizards"], 1)

	// Rename through existing_id.
	renamed := welcome()
	renamed.ID = "hello"
	renamed.ExistingID = "welcome"
	rec, _ = f.do(t, http.MethodPut, "/admin/wizards", renamed)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/admin/wizards/welcome", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/admin/wizards/hello", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, body = f.do(t, http.MethodGet, "/admin/wizards/hello", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestSaveDefinition_BadRequests(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodPut, "/admin/wizards", bytes.NewBufferString("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := f.do(t, http.MethodPut, "/admin/wizards", api.WizardDefinition{ID: "empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "at least one step")
}

func TestSubmitInlineAndAdminViews(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.engine.SaveDefinition(ctx, welcome()))

	rec, body := f.do(t, http.MethodPost, "/wizards/welcome/build", map[string]any{"actor": angus})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "step_1", body["current_step"])
	assert.Equal(t, "granted", body["access"])

	// Missing required field.
	rec, body = f.do(t, http.MethodPost, "/wizards/welcome/steps/step_1", map[string]any{"actor": angus, "values": map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, body["fields"], 1)

	rec, body = f.do(t, http.MethodPost, "/wizards/welcome/steps/step_1", map[string]any{
		"actor":  angus,
		"values": map[string]any{"step_1_field_1": "hello"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"kind": "next", "step_id": "step_2"}, body["navigation"])

	rec, body = f.do(t, http.MethodPost, "/wizards/welcome/steps/step_2", map[string]any{"actor": angus})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "/t/hello", body["redirect_on_complete"])
	errs, _ := body["action_errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "add_to_group", errs[0].(map[string]any)["kind"])

	rec, _ = f.do(t, http.MethodPost, "/wizards/welcome/steps/step_2", map[string]any{"actor": angus})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/wizards/welcome/steps/step_9", map[string]any{"actor": api.Actor{ID: "2", Username: "other"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/admin/wizards/welcome/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := body["submissions"].([]any)
	require.Len(t, subs, 1)
	assert.Equal(t, "Welcome", subs[0].(map[string]any)["name"])

	rec, body = f.do(t, http.MethodGet, "/admin/wizards/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["wizards"], 1)

	rec, body = f.do(t, http.MethodGet, "/admin/wizards/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["logs"])
	assert.NotContains(t, body, "next_offset")
}

func TestGetLog_OffsetValidation(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"-1", "abc"} {
		rec, _ := f.do(t, http.MethodGet, "/admin/wizards/logs?offset="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	rec, body := f.do(t, http.MethodGet, "/admin/wizards/logs?offset=5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), body["offset"])
	assert.Equal(t, []any{}, body["logs"])
}

func TestSubmitQueuedWithWorker(t *testing.T) {
	var wk *worker.Worker
	q := taskqueue.NewInMemoryQueue(8)
	f := newFixture(t, func(eng api.Engine) *worker.Worker {
		wk = worker.New(eng, q)
		return wk
	})
	ctx := context.Background()
	require.NoError(t, f.engine.SaveDefinition(ctx, welcome()))

	rec, body := f.do(t, http.MethodPost, "/wizards/welcome/steps/step_1", map[string]any{
		"actor":  angus,
		"values": map[string]any{"step_1_field_1": "queued"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, body["task_id"])
	assert.Equal(t, 1, q.Len())

	processed, err := wk.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	views, err := f.engine.GetSubmissions(ctx, "welcome")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "queued", views[0].Record.Values["step_1_field_1"])
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		api.ErrDefinitionNotFound:                         http.StatusNotFound,
		api.ErrUnknownStep:                                http.StatusNotFound,
		api.ErrInvalidDefinition:                          http.StatusBadRequest,
		api.ErrRequiresLogin:                              http.StatusUnauthorized,
		api.ErrNotPermitted:                               http.StatusForbidden,
		api.ErrAlreadyCompleted:                           http.StatusConflict,
		fmt.Errorf("save: %w", api.ErrPersistenceConflict): http.StatusConflict,
		&api.ValidationError{StepID: "s"}:                 http.StatusUnprocessableEntity,
		echo.NewHTTPError(http.StatusTeapot):              http.StatusTeapot,
		fmt.Errorf("disk on fire"):                        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(err), err.Error())
	}
}
