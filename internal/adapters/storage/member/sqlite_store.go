package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

const memberColumns = "id, name, gender, phone, email, join_date, is_active"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var m domain.Member
	var active int
	err := row.Scan(&m.ID, &m.Name, &m.Gender, &m.Phone, &m.Email, &m.JoinDate, &active)
	m.IsActive = active != 0
	return m, err
}

// GetByID retrieves a Member and its attendance history.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Member{}, err
	}

	history, err := s.loadHistory(ctx, "WHERE member_id = ?", id)
	if err != nil {
		return domain.Member{}, err
	}
	m.AttendanceHistory = history[id]
	return m, nil
}

// List returns members ordered by name, each with its attendance history.
// PRE: filter.Limit >= 0, filter.Offset >= 0
// POST: Returns at most filter.Limit members when Limit > 0
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member"
	var where []string
	var args []any
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return members, nil
	}

	history, err := s.loadHistory(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].AttendanceHistory = history[members[i].ID]
	}
	return members, nil
}

// loadHistory returns attendance records grouped by member id, in insertion order.
func (s *SQLiteStore) loadHistory(ctx context.Context, where string, args ...any) (map[string][]domain.AttendanceRecord, error) {
	query := "SELECT member_id, session_id, session_date, status, note FROM member_attendance " + where + " ORDER BY rowid"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.AttendanceRecord)
	for rows.Next() {
		var memberID string
		var r domain.AttendanceRecord
		if err := rows.Scan(&memberID, &r.SessionID, &r.SessionDate, &r.Status, &r.Note); err != nil {
			return nil, err
		}
		out[memberID] = append(out[memberID], r)
	}
	return out, rows.Err()
}

// Save persists a Member and replaces its attendance history.
// PRE: entity has been validated; every record references an existing session
// POST: member row upserted, history rows equal entity.AttendanceHistory
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO member (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, gender=excluded.gender, phone=excluded.phone,
		email=excluded.email, join_date=excluded.join_date, is_active=excluded.is_active`,
		entity.ID, entity.Name, entity.Gender, entity.Phone, entity.Email, entity.JoinDate, boolToInt(entity.IsActive),
	)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM member_attendance WHERE member_id = ?", entity.ID); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	for _, r := range entity.AttendanceHistory {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO member_attendance (member_id, session_id, session_date, status, note) VALUES (?, ?, ?, ?, ?)",
			entity.ID, r.SessionID, r.SessionDate, string(r.Status), r.Note,
		); err != nil {
			return fmt.Errorf("save attendance %s: %w", r.SessionID, err)
		}
	}

	return tx.Commit()
}

// RecordAttendance upserts one record for (memberID, rec.SessionID).
// PRE: rec has been validated
// POST: exactly one row exists for the pair; a missing member wraps storage.ErrNotFound
func (s *SQLiteStore) RecordAttendance(ctx context.Context, memberID string, rec domain.AttendanceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM member WHERE id = ?", memberID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO member_attendance (member_id, session_id, session_date, status, note) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(member_id, session_id) DO UPDATE SET session_date=excluded.session_date,
		status=excluded.status, note=excluded.note`,
		memberID, rec.SessionID, rec.SessionDate, string(rec.Status), rec.Note,
	)
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return tx.Commit()
}

// Delete removes a Member; its attendance rows cascade.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	return err
}

// Count returns the number of stored members.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member").Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
