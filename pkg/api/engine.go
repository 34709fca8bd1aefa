package api

import "context"

// Updater executes one step submission. It is created by Engine.CreateUpdater
// and is single use.
type Updater interface {
	Update(ctx context.Context) (*UpdateResult, error)
}

// Engine is the wizard execution engine: admin operations over definitions,
// submissions and logs, plus the Builder/Updater surface used by renderers.
type Engine interface {
	// FieldTypes lists the supported field types.
	FieldTypes() []FieldType

	// SaveDefinition upserts a definition by id. If def.ExistingID names a
	// stored definition, that definition is replaced (renamed to def.ID).
	SaveDefinition(ctx context.Context, def WizardDefinition) error

	// RemoveDefinition deletes a definition. Submission records are kept.
	RemoveDefinition(ctx context.Context, id string) error

	// GetDefinition returns the raw definition or ErrDefinitionNotFound.
	GetDefinition(ctx context.Context, id string) (WizardDefinition, error)

	// ListDefinitions returns every stored definition ordered by id.
	ListDefinitions(ctx context.Context) ([]WizardDefinition, error)

	// GetSubmissions returns every record of one wizard, annotated with the
	// wizard display name (or the raw id once the definition is gone).
	GetSubmissions(ctx context.Context, wizardID string) ([]SubmissionView, error)

	// ListAllSubmissions groups every stored record by wizard.
	ListAllSubmissions(ctx context.Context) ([]SubmissionGroup, error)

	// GetLog returns one page of log entries, newest first.
	GetLog(ctx context.Context, offset int) ([]LogEntry, error)

	// Build resolves a definition against the actor's submission so far.
	// It has no side effects.
	Build(ctx context.Context, wizardID string, actor Actor) (*WizardInstance, error)

	// CreateUpdater prepares the submission of values for stepID.
	CreateUpdater(inst *WizardInstance, stepID string, values map[string]any) Updater
}
