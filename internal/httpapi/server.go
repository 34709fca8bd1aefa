// Package httpapi exposes the admin operations and the renderer surface of
// an engine over HTTP.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/petrijr/wizflow/pkg/api"
	"github.com/petrijr/wizflow/pkg/worker"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Engine api.Engine

	// Worker, when set, makes step submissions asynchronous: they are queued
	// and answered with 202.
	Worker *worker.Worker

	Logger *slog.Logger
}

// NewServer creates a Server. w may be nil.
func NewServer(eng api.Engine, w *worker.Worker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Engine: eng, Worker: w, Logger: logger}
}

// Echo returns an echo instance with every route registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			s.Logger.LogAttrs(c.Request().Context(), level, "http_request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s.Register(e)
	return e
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	admin := e.Group("/admin/wizards")
	admin.GET("/field-types", s.FieldTypes)
	admin.GET("/submissions", s.ListAllSubmissions)
	admin.GET("/logs", s.GetLog)
	admin.GET("", s.ListDefinitions)
	admin.PUT("", s.SaveDefinition)
	admin.GET("/:id", s.GetDefinition)
	admin.DELETE("/:id", s.RemoveDefinition)
	admin.GET("/:id/submissions", s.GetSubmissions)

	wizards := e.Group("/wizards")
	wizards.POST("/:id/build", s.Build)
	wizards.POST("/:id/steps/:step", s.SubmitStep)
}

// FieldTypes lists the supported field types
// (GET /admin/wizards/field-types)
func (s *Server) FieldTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"field_types": s.Engine.FieldTypes()})
}

// SaveDefinition upserts a definition; "existing_id" renames
// (PUT /admin/wizards)
func (s *Server) SaveDefinition(c echo.Context) error {
	ctx := c.Request().Context()

	var def api.WizardDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := s.Engine.SaveDefinition(ctx, def); err != nil {
		return err
	}
	saved, err := s.Engine.GetDefinition(ctx, def.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}

// RemoveDefinition deletes a definition and keeps its submissions
// (DELETE /admin/wizards/:id)
func (s *Server) RemoveDefinition(c echo.Context) error {
	if err := s.Engine.RemoveDefinition(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetDefinition returns a raw definition
// (GET /admin/wizards/:id)
func (s *Server) GetDefinition(c echo.Context) error {
	def, err := s.Engine.GetDefinition(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, def)
}

// ListDefinitions returns every definition
// (GET /admin/wizards)
func (s *Server) ListDefinitions(c echo.Context) error {
	defs, err := s.Engine.ListDefinitions(c.Request().Context())
	if err != nil {
		return err
	}
	if defs == nil {
		defs = []api.WizardDefinition{}
	}
	return c.JSON(http.StatusOK, map[string]any{"wizards": defs})
}

// GetSubmissions lists the records of one wizard
// (GET /admin/wizards/:id/submissions)
func (s *Server) GetSubmissions(c echo.Context) error {
	views, err := s.Engine.GetSubmissions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if views == nil {
		views = []api.SubmissionView{}
	}
	return c.JSON(http.StatusOK, map[string]any{"submissions": views})
}

// ListAllSubmissions lists every record grouped by wizard
// (GET /admin/wizards/submissions)
func (s *Server) ListAllSubmissions(c echo.Context) error {
	groups, err := s.Engine.ListAllSubmissions(c.Request().Context())
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []api.SubmissionGroup{}
	}
	return c.JSON(http.StatusOK, map[string]any{"wizards": groups})
}

// GetLog returns one page of the log, newest first
// (GET /admin/wizards/logs?offset=)
func (s *Server) GetLog(c echo.Context) error {
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		offset = n
	}

	entries, err := s.Engine.GetLog(c.Request().Context(), offset)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []api.LogEntry{}
	}
	resp := map[string]any{"logs": entries, "offset": offset}
	if len(entries) == api.LogPageSize {
		resp["next_offset"] = offset + api.LogPageSize
	}
	return c.JSON(http.StatusOK, resp)
}

type buildRequest struct {
	Actor api.Actor `json:"actor"`
}

// Build resolves a wizard for an actor
// (POST /wizards/:id/build)
func (s *Server) Build(c echo.Context) error {
	var req buildRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	inst, err := s.Engine.Build(c.Request().Context(), c.Param("id"), req.Actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inst)
}

type submitRequest struct {
	Actor  api.Actor      `json:"actor"`
	Values map[string]any `json:"values"`
}

type actionErrorBody struct {
	ActionID string `json:"action_id"`
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Error    string `json:"error"`
}

type submitResponse struct {
	*api.UpdateResult
	ActionErrors []actionErrorBody `json:"action_errors,omitempty"`
}

// SubmitStep submits values for a step. With a worker the submission is
// queued and the task id returned with 202; otherwise the update runs inline.
// (POST /wizards/:id/steps/:step)
func (s *Server) SubmitStep(c echo.Context) error {
	ctx := c.Request().Context()

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	wizardID, stepID := c.Param("id"), c.Param("step")

	if s.Worker != nil {
		id, err := s.Worker.EnqueueSubmission(ctx, wizardID, req.Actor, stepID, req.Values)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusAccepted, map[string]any{"task_id": id})
	}

	inst, err := s.Engine.Build(ctx, wizardID, req.Actor)
	if err != nil {
		return err
	}
	res, err := s.Engine.CreateUpdater(inst, stepID, req.Values).Update(ctx)
	if res == nil {
		return err
	}
	// A result alongside an error means the update was committed and only
	// a later write failed; the renderer still gets the navigation.
	if err != nil {
		s.Logger.Warn("step committed with errors", "wizard", wizardID, "step", stepID, "error", err)
	}

	resp := submitResponse{UpdateResult: res}
	for _, ae := range res.ActionErrors {
		resp.ActionErrors = append(resp.ActionErrors, actionErrorBody{
			ActionID: ae.ActionID,
			Kind:     string(ae.Kind),
			Target:   ae.Target,
			Error:    ae.Err.Error(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

type errorBody struct {
	Error  string           `json:"error"`
	Fields []api.FieldError `json:"fields,omitempty"`
}

// errorHandler maps engine errors to status codes.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			body.Error = msg
		} else {
			body.Error = http.StatusText(he.Code)
		}
	}
	if v, ok := api.IsValidationError(err); ok {
		body.Fields = v.Fields
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.Logger.Error("write error response", "error", err)
	}
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if _, ok := api.IsValidationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, api.ErrDefinitionNotFound), errors.Is(err, api.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, api.ErrInvalidDefinition):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrRequiresLogin):
		return http.StatusUnauthorized
	case errors.Is(err, api.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, api.ErrAlreadyCompleted), errors.Is(err, api.ErrPersistenceConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
