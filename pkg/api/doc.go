// Package api contains the core building blocks of the wizflow wizard
// engine: definition types, the derived wizard instance, submission records,
// audit log entries, the error taxonomy, platform ports and observers.
//
// Most users interact with the higher-level wizflow package, which re-exports
// selected types and constructors from this package. The api package is
// intended for custom integrations: alternative storage backends, platform
// adapters, or observers.
//
// # Definitions
//
// A WizardDefinition is an ordered list of StepDefinitions. Each step holds
// FieldDefinitions (user inputs) and ActionDefinitions (side effects run when
// the step is submitted). Steps, fields and actions may carry a Condition
// that hides them for a given run.
//
// Field ids are explicit and double as submission tokens, so reordering the
// steps of a definition does not invalidate stored submissions.
//
// # Templates
//
// Action parameters and condition subjects are templates. Two token forms are
// recognised:
//
//	w{step_1_field_1}     submitted value (or action output, e.g. w{action_8})
//	w{action_8.slug}      nested value of a structured output
//	u{username}           actor attribute
//
// Unresolved tokens render as the empty string.
//
// # Errors
//
// Structural errors (ErrDefinitionNotFound, ErrUnknownStep, *ValidationError)
// abort an update with nothing committed. *ActionError values are attached to
// the UpdateResult and never abort. ErrPersistenceConflict is retryable.
//
// # Observability
//
// Observer receives engine events. LoggingObserver logs with log/slog,
// BasicMetrics keeps counters, and CompositeObserver fans out to several.
package api
