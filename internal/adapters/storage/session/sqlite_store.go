package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

const sessionColumns = "id, date, time, duration, theme, speaker, location, description, status, attendees, summary, notes, max_capacity, materials"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new session store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var s domain.Session
	var materials string
	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.Time,
		&s.Duration,
		&s.Theme,
		&s.Speaker,
		&s.Location,
		&s.Description,
		&s.Status,
		&s.Attendees,
		&s.Summary,
		&s.Notes,
		&s.MaxCapacity,
		&materials,
	)
	if err != nil {
		return s, err
	}
	if materials != "" && materials != "[]" {
		if err := json.Unmarshal([]byte(materials), &s.Materials); err != nil {
			return s, fmt.Errorf("decode materials for session %s: %w", s.ID, err)
		}
	}
	return s, nil
}

// GetByID retrieves a Session by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM session WHERE id = ?", id)
	entity, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// List returns sessions ordered by date, then time.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Session, error) {
	query := "SELECT " + sessionColumns + " FROM session"
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Speaker != "" {
		where = append(where, "speaker = ?")
		args = append(args, filter.Speaker)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, time, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Session
	for rows.Next() {
		entity, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Save persists a Session to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Session) error {
	materials, err := json.Marshal(nonNil(entity.Materials))
	if err != nil {
		return fmt.Errorf("encode materials: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date=excluded.date, time=excluded.time, duration=excluded.duration,
		theme=excluded.theme, speaker=excluded.speaker, location=excluded.location,
		description=excluded.description, status=excluded.status, attendees=excluded.attendees,
		summary=excluded.summary, notes=excluded.notes, max_capacity=excluded.max_capacity,
		materials=excluded.materials`,
		entity.ID,
		entity.Date,
		entity.Time,
		entity.Duration,
		entity.Theme,
		entity.Speaker,
		entity.Location,
		entity.Description,
		entity.Status,
		entity.Attendees,
		entity.Summary,
		entity.Notes,
		entity.MaxCapacity,
		string(materials),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return tx.Commit()
}

// Delete removes a Session; attendance rows referencing it cascade.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE id = ?", id)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
