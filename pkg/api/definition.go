package api

import "strings"

// FieldType identifies the kind of input a field captures.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldComposer     FieldType = "composer"
	FieldNumber       FieldType = "number"
	FieldCheckbox     FieldType = "checkbox"
	FieldURL          FieldType = "url"
	FieldDate         FieldType = "date"
	FieldUpload       FieldType = "upload"
	FieldDropdown     FieldType = "dropdown"
	FieldTag          FieldType = "tag"
	FieldCategory     FieldType = "category"
	FieldGroup        FieldType = "group"
	FieldUserSelector FieldType = "user_selector"
)

var fieldTypes = []FieldType{
	FieldText,
	FieldTextarea,
	FieldComposer,
	FieldNumber,
	FieldCheckbox,
	FieldURL,
	FieldDate,
	FieldUpload,
	FieldDropdown,
	FieldTag,
	FieldCategory,
	FieldGroup,
	FieldUserSelector,
}

// FieldTypes returns the catalogue of supported field types, in a stable order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is part of the catalogue.
func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// ActionKind names one of the fixed action handlers.
type ActionKind string

const (
	ActionCreateTopic    ActionKind = "create_topic"
	ActionSendMessage    ActionKind = "send_message"
	ActionUpdateProfile  ActionKind = "update_profile"
	ActionCreateCategory ActionKind = "create_category"
	ActionCreateGroup    ActionKind = "create_group"
	ActionAddToGroup     ActionKind = "add_to_group"
	ActionWatchCategory  ActionKind = "watch_category"
	ActionRouteTo        ActionKind = "route_to"
)

// WizardDefinition is the immutable template of a wizard.
//
// Definitions are owned by the admin layer and are read-only to the engine.
type WizardDefinition struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Background string           `json:"background,omitempty" yaml:"background,omitempty"`
	Steps      []StepDefinition `json:"steps" yaml:"steps"`

	// Permitted, if set, must evaluate true for the actor to run the wizard.
	Permitted *Condition `json:"permitted,omitempty" yaml:"permitted,omitempty"`

	// AllowAnonymous lets actors without an ID run the wizard. Their progress
	// is only stored when the renderer keys them by a session username.
	AllowAnonymous bool `json:"allow_anonymous,omitempty" yaml:"allow_anonymous,omitempty"`

	// MultipleSubmissions lets an actor run the wizard again after completing it.
	MultipleSubmissions bool `json:"multiple_submissions,omitempty" yaml:"multiple_submissions,omitempty"`

	// ExistingID is only meaningful on save: the definition stored under
	// ExistingID is replaced by this one (renamed to ID). Never persisted.
	ExistingID string `json:"existing_id,omitempty" yaml:"existing_id,omitempty"`
}

// DisplayName returns the wizard name, falling back to its id.
func (d WizardDefinition) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.ID
}

// Step returns the step with the given id.
func (d WizardDefinition) Step(id string) (StepDefinition, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// StepDefinition is one page of a wizard.
type StepDefinition struct {
	ID             string             `json:"id" yaml:"id"`
	Title          string             `json:"title,omitempty" yaml:"title,omitempty"`
	Description    string             `json:"description,omitempty" yaml:"description,omitempty"`
	Fields         []FieldDefinition  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Actions        []ActionDefinition `json:"actions,omitempty" yaml:"actions,omitempty"`
	Condition      *Condition         `json:"condition,omitempty" yaml:"condition,omitempty"`
	ForceFinalStep bool               `json:"force_final_step,omitempty" yaml:"force_final_step,omitempty"`
}

// FieldDefinition is one input within a step. ID doubles as the token under
// which the submitted value is stored, e.g. "step_1_field_1".
type FieldDefinition struct {
	ID        string     `json:"id" yaml:"id"`
	Type      FieldType  `json:"type" yaml:"type"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty"`
	Required  bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Choices   []string   `json:"choices,omitempty" yaml:"choices,omitempty"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ActionDefinition attaches a side-effecting operation to a step.
// Params are decoded into the kind's typed parameters at execution time.
type ActionDefinition struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      ActionKind     `json:"kind" yaml:"kind"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Condition *Condition     `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Token is the submission key under which the action's output is exposed.
func (a ActionDefinition) Token() string {
	return ActionToken(a.ID)
}

// ActionToken returns "action_<id>", leaving ids that already carry the
// prefix untouched.
func ActionToken(id string) string {
	if strings.HasPrefix(id, "action_") {
		return id
	}
	return "action_" + id
}

// Operator is a comparison used by a leaf Condition.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpContains Operator = "contains"
	OpPresent  Operator = "present"
	OpBlank    Operator = "blank"
)

// Condition is a boolean expression over submission values and actor
// attributes. Exactly one of the following forms should be used:
//
//   - leaf: Subject (an interpolation template) compared with Value/Values via Op
//   - All / Any / Not combinators
//   - Expr: an expr-lang expression
type Condition struct {
	Subject string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Op      Operator `json:"op,omitempty" yaml:"op,omitempty"`
	Value   any      `json:"value,omitempty" yaml:"value,omitempty"`
	Values  []any    `json:"values,omitempty" yaml:"values,omitempty"`

	All []Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any []Condition `json:"any,omitempty" yaml:"any,omitempty"`
	Not *Condition  `json:"not,omitempty" yaml:"not,omitempty"`

	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`
}
