package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/petrijr/wizflow/pkg/api"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL stores.
// Queries are written with "?" placeholders and rebound per dialect.
type sqlStore struct {
	db      *sql.DB
	dollars bool
}

// bind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *sqlStore) bind(query string) string {
	if !s.dollars {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.bind(query), args...)
}

func (s *sqlStore) SaveDefinition(ctx context.Context, def api.WizardDefinition) error {
	data, err := EncodeValue(def)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO wizard_definitions (id, name, definition)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, definition = excluded.definition`,
		def.ID, def.Name, data,
	)
	return err
}

func (s *sqlStore) GetDefinition(ctx context.Context, id string) (api.WizardDefinition, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT definition FROM wizard_definitions WHERE id = ?`), id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.WizardDefinition{}, api.ErrDefinitionNotFound
		}
		return api.WizardDefinition{}, err
	}
	return DecodeValue[api.WizardDefinition](data)
}

func (s *sqlStore) DeleteDefinition(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM wizard_definitions WHERE id = ?`, id)
	return err
}

func (s *sqlStore) ListDefinitions(ctx context.Context) ([]api.WizardDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT definition FROM wizard_definitions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []api.WizardDefinition
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		def, err := DecodeValue[api.WizardDefinition](data)
		if err != nil {
			return nil, err
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

func (s *sqlStore) GetSubmission(ctx context.Context, wizardID, userID string) (*api.SubmissionRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.bind(`
		SELECT record FROM wizard_submissions WHERE wizard_id = ? AND user_id = ?`),
		wizardID, userID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	rec, err := DecodeValue[api.SubmissionRecord](data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *sqlStore) SaveSubmission(ctx context.Context, rec *api.SubmissionRecord, expectedVersion int64) error {
	next := nextRecord(rec, expectedVersion)
	data, err := EncodeValue(next)
	if err != nil {
		return err
	}

	var res sql.Result
	if expectedVersion == 0 {
		res, err = s.exec(ctx, `
			INSERT INTO wizard_submissions (wizard_id, user_id, version, completed, record)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (wizard_id, user_id) DO NOTHING`,
			next.WizardID, next.UserID, next.Version, next.Completed, data,
		)
	} else {
		res, err = s.exec(ctx, `
			UPDATE wizard_submissions
			SET version = ?, completed = ?, record = ?
			WHERE wizard_id = ? AND user_id = ? AND version = ?`,
			next.Version, next.Completed, data, next.WizardID, next.UserID, expectedVersion,
		)
	}
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrPersistenceConflict
	}

	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *sqlStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*api.SubmissionRecord, error) {
	query := `SELECT record FROM wizard_submissions`
	var args []any
	if filter.WizardID != "" {
		query += ` WHERE wizard_id = ?`
		args = append(args, filter.WizardID)
	}
	query += ` ORDER BY wizard_id, user_id`

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*api.SubmissionRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := DecodeValue[api.SubmissionRecord](data)
		if err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}

func (s *sqlStore) AppendLog(ctx context.Context, entry *api.LogEntry) error {
	return s.db.QueryRowContext(ctx, s.bind(`
		INSERT INTO wizard_logs (id, wizard_id, action, user_name, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING seq`),
		entry.ID, entry.WizardID, entry.Action, entry.User, entry.Message, entry.CreatedAt.UnixNano(),
	).Scan(&entry.Seq)
}

func (s *sqlStore) ListLogs(ctx context.Context, offset, limit int) ([]api.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
		SELECT seq, id, wizard_id, action, user_name, message, created_at
		FROM wizard_logs
		ORDER BY seq DESC
		LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []api.LogEntry
	for rows.Next() {
		var (
			e       api.LogEntry
			created int64
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.WizardID, &e.Action, &e.User, &e.Message, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}
