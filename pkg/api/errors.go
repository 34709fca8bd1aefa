package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefinitionNotFound is returned when no wizard definition has the requested id.
	ErrDefinitionNotFound = errors.New("wizard definition not found")

	// ErrInvalidDefinition wraps every reason SaveDefinition rejects a definition.
	ErrInvalidDefinition = errors.New("invalid wizard definition")

	// ErrUnknownStep is returned when a step id is not among the instance's active steps.
	ErrUnknownStep = errors.New("unknown step")

	// ErrPersistenceConflict signals a concurrent write to the same submission
	// record. Nothing was committed; the whole update may be retried.
	ErrPersistenceConflict = errors.New("submission persistence conflict")

	ErrRequiresLogin    = errors.New("wizard requires login")
	ErrNotPermitted     = errors.New("actor is not permitted to run this wizard")
	ErrAlreadyCompleted = errors.New("wizard already completed")

	// ErrUnresolvedReference is returned by condition evaluation when a
	// condition refers to a value that has not been submitted yet.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrNotFound is returned by platform ports for missing users, groups,
	// categories and similar targets.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by platform ports when a created object collides
	// with an existing one.
	ErrConflict = errors.New("conflict")
)

// FieldError describes why one submitted field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every field failure of one submission.
type ValidationError struct {
	StepID string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("step %s: validation failed: %s", e.StepID, strings.Join(parts, "; "))
}

// Add appends a field failure.
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// IsValidationError returns the ValidationError wrapped in err, if any.
func IsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// ActionError is a non-fatal failure of one action. Target names the
// recipient, group or category the failure relates to, when there is one.
type ActionError struct {
	ActionID string
	Kind     ActionKind
	Target   string
	Err      error
}

func (e *ActionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("action %s (%s) %s: %v", e.ActionID, e.Kind, e.Target, e.Err)
	}
	return fmt.Sprintf("action %s (%s): %v", e.ActionID, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ConditionError reports a malformed condition. Evaluation fails closed.
type ConditionError struct {
	Scope string // e.g. "step step_2", "action action_3"
	Err   error
}

func (e *ConditionError) Error() string {
	if e.Scope == "" {
		return "malformed condition: " + e.Err.Error()
	}
	return fmt.Sprintf("malformed condition on %s: %v", e.Scope, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}
