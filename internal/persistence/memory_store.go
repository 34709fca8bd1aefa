package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/petrijr/wizflow/pkg/api"
)

type submissionKey struct {
	wizardID string
	userID   string
}

// InMemoryStore is a simple, goroutine-safe implementation of
// DefinitionStore, SubmissionStore and LogStore backed by maps.
// Values are deep-copied on the way in and out.
type InMemoryStore struct {
	mu          sync.RWMutex
	definitions map[string]api.WizardDefinition
	submissions map[submissionKey]api.SubmissionRecord
	logs        []api.LogEntry
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		definitions: make(map[string]api.WizardDefinition),
		submissions: make(map[submissionKey]api.SubmissionRecord),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ DefinitionStore = (*InMemoryStore)(nil)

var _ SubmissionStore = (*InMemoryStore)(nil)

var _ LogStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveDefinition(_ context.Context, def api.WizardDefinition) error {
	stored, err := cloneValue(def)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.definitions[def.ID] = stored
	return nil
}

func (s *InMemoryStore) GetDefinition(_ context.Context, id string) (api.WizardDefinition, error) {
	s.mu.RLock()
	def, ok := s.definitions[id]
	s.mu.RUnlock()

	if !ok {
		return api.WizardDefinition{}, api.ErrDefinitionNotFound
	}
	return cloneValue(def)
}

func (s *InMemoryStore) DeleteDefinition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.definitions, id)
	return nil
}

func (s *InMemoryStore) ListDefinitions(_ context.Context) ([]api.WizardDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]api.WizardDefinition, 0, len(s.definitions))
	for _, def := range s.definitions {
		c, err := cloneValue(def)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryStore) GetSubmission(_ context.Context, wizardID, userID string) (*api.SubmissionRecord, error) {
	s.mu.RLock()
	rec, ok := s.submissions[submissionKey{wizardID, userID}]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSubmissionNotFound
	}
	c, err := cloneValue(rec)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *InMemoryStore) SaveSubmission(_ context.Context, rec *api.SubmissionRecord, expectedVersion int64) error {
	next, err := cloneValue(nextRecord(rec, expectedVersion))
	if err != nil {
		return err
	}
	key := submissionKey{rec.WizardID, rec.UserID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submissions[key].Version != expectedVersion {
		return api.ErrPersistenceConflict
	}
	s.submissions[key] = next

	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *InMemoryStore) ListSubmissions(_ context.Context, filter SubmissionFilter) ([]*api.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.SubmissionRecord
	for key, rec := range s.submissions {
		if filter.WizardID != "" && key.wizardID != filter.WizardID {
			continue
		}
		c, err := cloneValue(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	sortRecords(result)
	return result, nil
}

func (s *InMemoryStore) AppendLog(_ context.Context, entry *api.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Seq = int64(len(s.logs)) + 1
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *InMemoryStore) ListLogs(_ context.Context, offset, limit int) ([]api.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []api.LogEntry
	for i := len(s.logs) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.logs[i])
	}
	return result, nil
}

func sortRecords(recs []*api.SubmissionRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].WizardID != recs[j].WizardID {
			return recs[i].WizardID < recs[j].WizardID
		}
		return recs[i].UserID < recs[j].UserID
	})
}
