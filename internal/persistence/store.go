package persistence

import (
	"context"
	"errors"

	"github.com/petrijr/wizflow/pkg/api"
)

// ErrSubmissionNotFound is returned when no record exists for a (wizard, user) pair.
var ErrSubmissionNotFound = errors.New("submission not found")

// DefinitionStore handles storage of wizard definitions, keyed by id.
type DefinitionStore interface {
	// SaveDefinition inserts or replaces the definition with the same id.
	SaveDefinition(ctx context.Context, def api.WizardDefinition) error
	// GetDefinition returns api.ErrDefinitionNotFound for unknown ids.
	GetDefinition(ctx context.Context, id string) (api.WizardDefinition, error)
	// DeleteDefinition is idempotent.
	DeleteDefinition(ctx context.Context, id string) error
	// ListDefinitions returns every definition ordered by id.
	ListDefinitions(ctx context.Context) ([]api.WizardDefinition, error)
}

// SubmissionFilter selects records. Empty WizardID means every wizard.
type SubmissionFilter struct {
	WizardID string
}

// SubmissionStore handles storage of per-(wizard, user) submission records.
type SubmissionStore interface {
	// GetSubmission returns ErrSubmissionNotFound when the pair has no record.
	GetSubmission(ctx context.Context, wizardID, userID string) (*api.SubmissionRecord, error)
	// SaveSubmission writes rec only if the stored version equals
	// expectedVersion (0 means no record may exist yet). On success
	// rec.Version becomes expectedVersion+1 and rec.UpdatedAt is stamped;
	// otherwise api.ErrPersistenceConflict is returned and rec is untouched.
	SaveSubmission(ctx context.Context, rec *api.SubmissionRecord, expectedVersion int64) error
	// ListSubmissions returns matching records ordered by wizard id, then user id.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*api.SubmissionRecord, error)
}

// LogStore is the append-only audit trail.
type LogStore interface {
	// AppendLog assigns entry.Seq and stores the entry.
	AppendLog(ctx context.Context, entry *api.LogEntry) error
	// ListLogs returns up to limit entries, newest first, skipping offset.
	ListLogs(ctx context.Context, offset, limit int) ([]api.LogEntry, error)
}
