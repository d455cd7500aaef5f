package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

const outboxColumns = "id, kind, payload, subject, status, attempts, max_attempts, last_attempted_at, created_at, message_id, last_error"

// dateLayout is fixed width so ORDER BY created_at is chronological.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
// PRE: id is non-empty
// POST: Returns the entry or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox entry %s: %w", id, storage.ErrNotFound)
	}
	return e, err
}

// Save inserts or updates an entry.
// PRE: entry has been validated
// POST: Entry is persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	lastAttemptedAt := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttemptedAt = e.LastAttemptedAt.UTC().Format(dateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+outboxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, message_id=excluded.message_id,
		   last_error=excluded.last_error`,
		e.ID, e.Kind, e.Payload, e.Subject, e.Status, e.Attempts, e.MaxAttempts,
		lastAttemptedAt, e.CreatedAt.UTC().Format(dateLayout), e.MessageID, e.LastError)
	return err
}

// ListRetryable returns pending and retrying entries, oldest first.
// PRE: limit > 0
func (s *SQLiteStore) ListRetryable(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.query(ctx,
		`SELECT `+outboxColumns+` FROM outbox WHERE status IN (?, ?) ORDER BY created_at ASC LIMIT ?`,
		domain.StatusPending, domain.StatusRetrying, limit)
}

// List returns entries with the given status, newest first; an empty status matches all.
// PRE: limit > 0
func (s *SQLiteStore) List(ctx context.Context, status string, limit int) ([]domain.Entry, error) {
	if status == "" {
		return s.query(ctx, `SELECT `+outboxColumns+` FROM outbox ORDER BY created_at DESC LIMIT ?`, limit)
	}
	return s.query(ctx,
		`SELECT `+outboxColumns+` FROM outbox WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt string
	err := scan(&e.ID, &e.Kind, &e.Payload, &e.Subject, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.MessageID, &e.LastError)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	if lastAttemptedAt != "" {
		e.LastAttemptedAt, _ = time.Parse(dateLayout, lastAttemptedAt)
	}
	return e, nil
}
