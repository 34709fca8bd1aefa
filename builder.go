package wizflow

import (
	"context"
	"fmt"

	"github.com/petrijr/wizflow/pkg/api"
)

// WizardBuilder provides a fluent API for defining wizards:
//
//	def := wizflow.New("welcome").
//	    Name("Welcome").
//	    Step("step_1", "Your first topic").
//	    Field("step_1_field_1", wizflow.FieldText, wizflow.Required()).
//	    Step("step_2", "Say something").
//	    Field("step_2_field_1", wizflow.FieldTextarea, wizflow.Required()).
//	    Action("1", wizflow.ActionCreateTopic, map[string]any{
//	        "title": "w{step_1_field_1}",
//	        "body":  "w{step_2_field_1}",
//	    })
//
//	if err := def.Save(ctx, engine); err != nil {
//	    log.Fatal(err)
//	}
//
// Field, Action, When and ForceFinal apply to the most recent Step.
type WizardBuilder struct {
	def api.WizardDefinition
}

// Field types and action kinds, re-exported for builder call sites.
const (
	FieldText         = api.FieldText
	FieldTextarea     = api.FieldTextarea
	FieldComposer     = api.FieldComposer
	FieldNumber       = api.FieldNumber
	FieldCheckbox     = api.FieldCheckbox
	FieldURL          = api.FieldURL
	FieldDate         = api.FieldDate
	FieldUpload       = api.FieldUpload
	FieldDropdown     = api.FieldDropdown
	FieldTag          = api.FieldTag
	FieldCategory     = api.FieldCategory
	FieldGroup        = api.FieldGroup
	FieldUserSelector = api.FieldUserSelector

	ActionCreateTopic    = api.ActionCreateTopic
	ActionSendMessage    = api.ActionSendMessage
	ActionUpdateProfile  = api.ActionUpdateProfile
	ActionCreateCategory = api.ActionCreateCategory
	ActionCreateGroup    = api.ActionCreateGroup
	ActionAddToGroup     = api.ActionAddToGroup
	ActionWatchCategory  = api.ActionWatchCategory
	ActionRouteTo        = api.ActionRouteTo
)

// New creates a new wizard builder with the given id.
func New(id string) *WizardBuilder {
	return &WizardBuilder{def: api.WizardDefinition{ID: id}}
}

// ID returns the wizard id.
func (b *WizardBuilder) ID() string {
	return b.def.ID
}

// Definition returns a copy of the definition built so far. Steps, fields
// and actions are copied; condition values and action params are shared.
func (b *WizardBuilder) Definition() WizardDefinition {
	def := b.def
	def.Steps = make([]api.StepDefinition, len(b.def.Steps))
	for i, step := range b.def.Steps {
		step.Fields = append([]api.FieldDefinition(nil), step.Fields...)
		step.Actions = append([]api.ActionDefinition(nil), step.Actions...)
		def.Steps[i] = step
	}
	return def
}

// Name sets the display name.
func (b *WizardBuilder) Name(name string) *WizardBuilder {
	b.def.Name = name
	return b
}

// Background sets the background shown behind the wizard.
func (b *WizardBuilder) Background(bg string) *WizardBuilder {
	b.def.Background = bg
	return b
}

// Permitted restricts the wizard to actors for whom c holds.
func (b *WizardBuilder) Permitted(c Condition) *WizardBuilder {
	b.def.Permitted = &c
	return b
}

// AllowAnonymous lets actors that are not logged in run the wizard.
func (b *WizardBuilder) AllowAnonymous() *WizardBuilder {
	b.def.AllowAnonymous = true
	return b
}

// MultipleSubmissions lets actors run the wizard again after completing it.
func (b *WizardBuilder) MultipleSubmissions() *WizardBuilder {
	b.def.MultipleSubmissions = true
	return b
}

// Step appends a step.
func (b *WizardBuilder) Step(id, title string) *WizardBuilder {
	if id == "" {
		panic("wizflow: step id must not be empty")
	}
	b.def.Steps = append(b.def.Steps, api.StepDefinition{ID: id, Title: title})
	return b
}

func (b *WizardBuilder) lastStep(method string) *api.StepDefinition {
	if len(b.def.Steps) == 0 {
		panic(fmt.Sprintf("wizflow: %s called before Step", method))
	}
	return &b.def.Steps[len(b.def.Steps)-1]
}

// FieldOption customizes a field added with WizardBuilder.Field.
type FieldOption func(*api.FieldDefinition)

// Required marks the field as required.
func Required() FieldOption {
	return func(f *api.FieldDefinition) { f.Required = true }
}

// Label sets the field label.
func Label(label string) FieldOption {
	return func(f *api.FieldDefinition) { f.Label = label }
}

// Choices sets the options of a dropdown field.
func Choices(choices ...string) FieldOption {
	return func(f *api.FieldDefinition) { f.Choices = append([]string(nil), choices...) }
}

// ShowIf shows the field only while c holds.
func ShowIf(c Condition) FieldOption {
	return func(f *api.FieldDefinition) { f.Condition = &c }
}

// Field appends a field to the current step.
func (b *WizardBuilder) Field(id string, t FieldType, opts ...FieldOption) *WizardBuilder {
	step := b.lastStep("Field")
	f := api.FieldDefinition{ID: id, Type: t}
	for _, opt := range opts {
		opt(&f)
	}
	step.Fields = append(step.Fields, f)
	return b
}

// Action appends an action to the current step.
func (b *WizardBuilder) Action(id string, kind ActionKind, params map[string]any) *WizardBuilder {
	step := b.lastStep("Action")
	step.Actions = append(step.Actions, api.ActionDefinition{ID: id, Kind: kind, Params: params})
	return b
}

// ActionIf appends an action that only runs while c holds.
func (b *WizardBuilder) ActionIf(id string, kind ActionKind, params map[string]any, c Condition) *WizardBuilder {
	step := b.lastStep("ActionIf")
	step.Actions = append(step.Actions, api.ActionDefinition{ID: id, Kind: kind, Params: params, Condition: &c})
	return b
}

// When shows the current step only while c holds.
func (b *WizardBuilder) When(c Condition) *WizardBuilder {
	b.lastStep("When").Condition = &c
	return b
}

// ForceFinal completes the wizard once the current step is submitted.
func (b *WizardBuilder) ForceFinal() *WizardBuilder {
	b.lastStep("ForceFinal").ForceFinalStep = true
	return b
}

// Save stores the built definition with the given engine.
func (b *WizardBuilder) Save(ctx context.Context, eng Engine) error {
	return eng.SaveDefinition(ctx, b.Definition())
}

// MustSave is like Save but panics on error.
// Useful for initialization in main().
func (b *WizardBuilder) MustSave(ctx context.Context, eng Engine) {
	if err := b.Save(ctx, eng); err != nil {
		panic(err)
	}
}

// Condition constructors.

// Eq holds when subject interpolates to the same text as v.
func Eq(subject string, v any) Condition {
	return Condition{Subject: subject, Op: api.OpEq, Value: v}
}

// Neq holds when subject differs from v.
func Neq(subject string, v any) Condition {
	return Condition{Subject: subject, Op: api.OpNeq, Value: v}
}

// In holds when subject equals one of values.
func In(subject string, values ...any) Condition {
	return Condition{Subject: subject, Op: api.OpIn, Values: values}
}

// Present holds when subject interpolates to non-blank text.
func Present(subject string) Condition {
	return Condition{Subject: subject, Op: api.OpPresent}
}

// Expr holds when the expr-lang expression evaluates true.
func Expr(expression string) Condition {
	return Condition{Expr: expression}
}

// All holds when every condition holds.
func All(conds ...Condition) Condition {
	return Condition{All: conds}
}

// Any holds when at least one condition holds.
func Any(conds ...Condition) Condition {
	return Condition{Any: conds}
}

// Not negates c.
func Not(c Condition) Condition {
	return Condition{Not: &c}
}
