package persistence

import (
	"database/sql"
)

// SQLiteStore implements every store interface on SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	sqlStore
}

// Ensure SQLiteStore implements the interfaces.
var (
	_ DefinitionStore = (*SQLiteStore)(nil)
	_ SubmissionStore = (*SQLiteStore)(nil)
	_ LogStore        = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the required schema in the given
// database and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{sqlStore{db: db}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLitePersistence bundles a single SQLiteStore.
func NewSQLitePersistence(db *sql.DB) (Persistence, error) {
	s, err := NewSQLiteStore(db)
	if err != nil {
		return Persistence{}, err
	}
	return Persistence{Definitions: s, Submissions: s, Logs: s}, nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wizard_definitions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			definition BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wizard_submissions (
			wizard_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			completed BOOLEAN NOT NULL,
			record BLOB NOT NULL,
			PRIMARY KEY (wizard_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wizard_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			wizard_id TEXT NOT NULL,
			action TEXT NOT NULL,
			user_name TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
