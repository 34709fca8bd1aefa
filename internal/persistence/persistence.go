package persistence

// Persistence bundles the three store interfaces so the engine
// can depend on a single abstraction.
type Persistence struct {
	Definitions DefinitionStore
	Submissions SubmissionStore
	Logs        LogStore
}

// NewInMemoryPersistence returns a Persistence where every store is the same
// InMemoryStore.
func NewInMemoryPersistence() Persistence {
	s := NewInMemoryStore()
	return Persistence{Definitions: s, Submissions: s, Logs: s}
}
