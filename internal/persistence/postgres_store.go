package persistence

import (
	"database/sql"
)

// PostgresStore implements every store interface on PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	sqlStore
}

// Ensure PostgresStore implements the interfaces.
var (
	_ DefinitionStore = (*PostgresStore)(nil)
	_ SubmissionStore = (*PostgresStore)(nil)
	_ LogStore        = (*PostgresStore)(nil)
)

// NewPostgresStore initializes the required schema in the given
// database and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{sqlStore{db: db, dollars: true}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgresPersistence bundles a single PostgresStore.
func NewPostgresPersistence(db *sql.DB) (Persistence, error) {
	s, err := NewPostgresStore(db)
	if err != nil {
		return Persistence{}, err
	}
	return Persistence{Definitions: s, Submissions: s, Logs: s}, nil
}

func (s *PostgresStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wizard_definitions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			definition BYTEA NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wizard_submissions (
			wizard_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			version BIGINT NOT NULL,
			completed BOOLEAN NOT NULL,
			record BYTEA NOT NULL,
			PRIMARY KEY (wizard_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wizard_logs (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			wizard_id TEXT NOT NULL,
			action TEXT NOT NULL,
			user_name TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
