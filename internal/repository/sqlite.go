package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	// Fixed width so that text ordering matches time ordering.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS registrants (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	date_of_birth TEXT,
	nationality TEXT NOT NULL DEFAULT '',
	residence TEXT NOT NULL DEFAULT '',
	place_of_catastrophe TEXT NOT NULL DEFAULT '',
	place_of_shelter TEXT NOT NULL DEFAULT '',
	date_of_catastrophe TEXT,
	registered_at TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT '',
	document_number TEXT NOT NULL DEFAULT '',
	checksums_valid INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_registrants_registered_at ON registrants(registered_at);
`

const selectColumns = `id, first_name, last_name, date_of_birth, nationality, residence,
	place_of_catastrophe, place_of_shelter, date_of_catastrophe, registered_at,
	document_type, document_number, checksums_valid`

// SQLiteRepository implements RegistrantRepository on a SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (and migrates) the database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps an
	// in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (s *SQLiteRepository) Create(ctx context.Context, r *Registrant) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RegisteredAt.IsZero() {
		r.RegisteredAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO registrants (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, values(r)...)
	if err != nil {
		return fmt.Errorf("failed to insert registrant: %w", err)
	}
	return nil
}

func (s *SQLiteRepository) Get(ctx context.Context, id string) (*Registrant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM registrants WHERE id = ?`, id)
	r, err := scanRegistrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registrant %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLiteRepository) Update(ctx context.Context, r *Registrant) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.RegisteredAt.IsZero() {
		existing, err := s.Get(ctx, r.ID)
		if err != nil {
			return err
		}
		r.RegisteredAt = existing.RegisteredAt
	}

	v := values(r)
	res, err := s.db.ExecContext(ctx, `UPDATE registrants SET
		first_name = ?, last_name = ?, date_of_birth = ?, nationality = ?, residence = ?,
		place_of_catastrophe = ?, place_of_shelter = ?, date_of_catastrophe = ?, registered_at = ?,
		document_type = ?, document_number = ?, checksums_valid = ?
		WHERE id = ?`, append(v[1:], v[0])...)
	if err != nil {
		return fmt.Errorf("failed to update registrant %s: %w", r.ID, err)
	}
	return requireAffected(res)
}

func (s *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete registrant %s: %w", id, err)
	}
	return requireAffected(res)
}

func (s *SQLiteRepository) List(ctx context.Context) ([]*Registrant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM registrants ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrants: %w", err)
	}
	defer rows.Close()

	var out []*Registrant
	for rows.Next() {
		r, err := scanRegistrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read registrant: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks that the database is reachable.
func (s *SQLiteRepository) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRegistrantNotFound
	}
	return nil
}

// values returns r's columns in selectColumns order.
func values(r *Registrant) []any {
	return []any{
		r.ID,
		r.FirstName,
		r.LastName,
		formatDate(r.DateOfBirth),
		r.Nationality,
		r.Residence,
		r.PlaceOfCatastrophe,
		r.PlaceOfShelter,
		formatDate(r.DateOfCatastrophe),
		r.RegisteredAt.UTC().Format(timestampLayout),
		r.DocumentType,
		r.DocumentNumber,
		r.ChecksumsValid,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrant(row rowScanner) (*Registrant, error) {
	var (
		r                  Registrant
		birth, catastrophe sql.NullString
		registeredAt       string
	)
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &birth, &r.Nationality, &r.Residence,
		&r.PlaceOfCatastrophe, &r.PlaceOfShelter, &catastrophe, &registeredAt,
		&r.DocumentType, &r.DocumentNumber, &r.ChecksumsValid)
	if err != nil {
		return nil, err
	}

	if r.DateOfBirth, err = parseDate(birth); err != nil {
		return nil, err
	}
	if r.DateOfCatastrophe, err = parseDate(catastrophe); err != nil {
		return nil, err
	}
	if r.RegisteredAt, err = time.Parse(timestampLayout, registeredAt); err != nil {
		return nil, fmt.Errorf("invalid registration time %q: %w", registeredAt, err)
	}
	return &r, nil
}

func formatDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func parseDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s.String, err)
	}
	return &t, nil
}
