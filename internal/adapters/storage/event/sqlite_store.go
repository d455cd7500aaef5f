package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

const eventColumns = "id, title, type, date, time, end_time, location, description, organizer, status, max_participants, budget, materials, photos, summary, results"

const contactColumns = "id, name, phone, email, age, profession, address, contact_method, interest_level, follow_up_date, follow_up_status, notes, contacted_by, source"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// querier is the read surface shared by storage.SQLDB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var e domain.Event
	var materials, photos string
	var results sql.NullString
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Type,
		&e.Date,
		&e.Time,
		&e.EndTime,
		&e.Location,
		&e.Description,
		&e.Organizer,
		&e.Status,
		&e.MaxParticipants,
		&e.Budget,
		&materials,
		&photos,
		&e.Summary,
		&results,
	)
	if err != nil {
		return e, err
	}
	if e.Materials, err = decodeList(materials); err != nil {
		return e, fmt.Errorf("decode materials for event %s: %w", e.ID, err)
	}
	if e.Photos, err = decodeList(photos); err != nil {
		return e, fmt.Errorf("decode photos for event %s: %w", e.ID, err)
	}
	if results.Valid && results.String != "" {
		var r domain.Results
		if err := json.Unmarshal([]byte(results.String), &r); err != nil {
			return e, fmt.Errorf("decode results for event %s: %w", e.ID, err)
		}
		e.Results = &r
	}
	return e, nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var out []string
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}

// GetByID retrieves an Event with its participants, contacts and expenses.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM event WHERE id = ?", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Event{}, err
	}
	events := []domain.Event{e}
	if err := s.loadOwned(ctx, events, "WHERE event_id = ?", id); err != nil {
		return domain.Event{}, err
	}
	return events[0], nil
}

// List returns events ordered by date, each with its owned collections.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM event"
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
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
	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadOwned(ctx, events, ""); err != nil {
		return nil, err
	}
	return events, nil
}

// loadOwned fills the owned collections of events in place.
func (s *SQLiteStore) loadOwned(ctx context.Context, events []domain.Event, where string, args ...any) error {
	if len(events) == 0 {
		return nil
	}
	index := make(map[string]int, len(events))
	for i := range events {
		index[events[i].ID] = i
	}

	participants, err := loadParticipants(ctx, s.db, where, args...)
	if err != nil {
		return err
	}
	contacts, err := loadContacts(ctx, s.db, where, args...)
	if err != nil {
		return err
	}
	expenses, err := loadExpenses(ctx, s.db, where, args...)
	if err != nil {
		return err
	}
	for id, i := range index {
		events[i].Participants = participants[id]
		events[i].Contacts = contacts[id]
		events[i].Expenses = expenses[id]
	}
	return nil
}

func loadParticipants(ctx context.Context, q querier, where string, args ...any) (map[string][]domain.Participant, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT event_id, id, member_id, name, phone, role, confirmed, registration_date, notes FROM event_participant "+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Participant)
	for rows.Next() {
		var eventID string
		var p domain.Participant
		var confirmed int
		if err := rows.Scan(&eventID, &p.ID, &p.MemberID, &p.Name, &p.Phone, &p.Role, &confirmed, &p.RegistrationDate, &p.Notes); err != nil {
			return nil, err
		}
		p.Confirmed = confirmed != 0
		out[eventID] = append(out[eventID], p)
	}
	return out, rows.Err()
}

func scanContact(row rowScanner, c *domain.Contact) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.Age,
		&c.Profession,
		&c.Address,
		&c.ContactMethod,
		&c.InterestLevel,
		&c.FollowUpDate,
		&c.FollowUpStatus,
		&c.Notes,
		&c.ContactedBy,
		&c.Source,
	)
}

// prefixed scans a leading column into first before the remaining destinations.
type prefixed struct {
	rows  *sql.Rows
	first *string
}

func (p prefixed) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.first}, dest...)...)
}

func loadContacts(ctx context.Context, q querier, where string, args ...any) (map[string][]domain.Contact, error) {
	rows, err := q.QueryContext(ctx, "SELECT event_id, "+contactColumns+" FROM event_contact "+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Contact)
	for rows.Next() {
		var c domain.Contact
		var eventID string
		if err := scanContact(prefixed{rows, &eventID}, &c); err != nil {
			return nil, err
		}
		c.EventID = eventID
		out[eventID] = append(out[eventID], c)
	}
	return out, rows.Err()
}

func loadExpenses(ctx context.Context, q querier, where string, args ...any) (map[string][]domain.Expense, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT event_id, id, category, description, amount, date, receipt FROM event_expense "+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Expense)
	for rows.Next() {
		var eventID string
		var x domain.Expense
		if err := rows.Scan(&eventID, &x.ID, &x.Category, &x.Description, &x.Amount, &x.Date, &x.Receipt); err != nil {
			return nil, err
		}
		out[eventID] = append(out[eventID], x)
	}
	return out, rows.Err()
}

// Save persists an Event and replaces its owned collections.
// PRE: entity has been validated
// POST: event row upserted; participant, contact and expense rows equal the entity's slices
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Event) error {
	materials, err := encodeList(entity.Materials)
	if err != nil {
		return fmt.Errorf("encode materials: %w", err)
	}
	photos, err := encodeList(entity.Photos)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	var results any
	if entity.Results != nil {
		b, err := json.Marshal(entity.Results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		results = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, type=excluded.type, date=excluded.date,
		time=excluded.time, end_time=excluded.end_time, location=excluded.location,
		description=excluded.description, organizer=excluded.organizer, status=excluded.status,
		max_participants=excluded.max_participants, budget=excluded.budget,
		materials=excluded.materials, photos=excluded.photos, summary=excluded.summary,
		results=excluded.results`,
		entity.ID,
		entity.Title,
		entity.Type,
		entity.Date,
		entity.Time,
		entity.EndTime,
		entity.Location,
		entity.Description,
		entity.Organizer,
		entity.Status,
		entity.MaxParticipants,
		entity.Budget,
		materials,
		photos,
		entity.Summary,
		results,
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}

	for _, table := range []string{"event_participant", "event_contact", "event_expense"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE event_id = ?", entity.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, p := range entity.Participants {
		if err := insertParticipant(ctx, tx, entity.ID, p); err != nil {
			return err
		}
	}
	for _, c := range entity.Contacts {
		if err := insertContact(ctx, tx, entity.ID, c); err != nil {
			return err
		}
	}
	for _, x := range entity.Expenses {
		if err := insertExpense(ctx, tx, entity.ID, x); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertParticipant(ctx context.Context, tx *sql.Tx, eventID string, p domain.Participant) error {
	confirmed := 0
	if p.Confirmed {
		confirmed = 1
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_participant (event_id, id, member_id, name, phone, role, confirmed, registration_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, p.ID, p.MemberID, p.Name, p.Phone, p.Role, confirmed, p.RegistrationDate, p.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert participant %s: %w", p.ID, err)
	}
	return nil
}

func insertContact(ctx context.Context, tx *sql.Tx, eventID string, c domain.Contact) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_contact (event_id, `+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, c.ID, c.Name, c.Phone, c.Email, c.Age, c.Profession, c.Address,
		c.ContactMethod, c.InterestLevel, c.FollowUpDate, c.FollowUpStatus,
		c.Notes, c.ContactedBy, c.Source,
	)
	if err != nil {
		return fmt.Errorf("insert contact %s: %w", c.ID, err)
	}
	return nil
}

func insertExpense(ctx context.Context, tx *sql.Tx, eventID string, x domain.Expense) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_expense (event_id, id, category, description, amount, date, receipt)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eventID, x.ID, x.Category, x.Description, x.Amount, x.Date, x.Receipt,
	)
	if err != nil {
		return fmt.Errorf("insert expense %s: %w", x.ID, err)
	}
	return nil
}

// Delete removes an Event; owned rows cascade.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM event WHERE id = ?", id)
	return err
}

// withEvent runs fn inside a transaction after checking the parent event exists.
// POST: fn's writes are committed together, or none are
func (s *SQLiteStore) withEvent(ctx context.Context, eventID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM event WHERE id = ?", eventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AddContact appends a contact to the event's contacts.
// PRE: c has been validated
// POST: contact row committed, or ErrEventNotFound and nothing written
func (s *SQLiteStore) AddContact(ctx context.Context, eventID string, c domain.Contact) error {
	return s.withEvent(ctx, eventID, func(tx *sql.Tx) error {
		return insertContact(ctx, tx, eventID, c)
	})
}

// AddParticipant appends a registration to the event.
// PRE: p has been validated
// POST: participant row committed, or ErrEventNotFound and nothing written
func (s *SQLiteStore) AddParticipant(ctx context.Context, eventID string, p domain.Participant) error {
	return s.withEvent(ctx, eventID, func(tx *sql.Tx) error {
		return insertParticipant(ctx, tx, eventID, p)
	})
}

// AddExpense books an expense against the event.
func (s *SQLiteStore) AddExpense(ctx context.Context, eventID string, x domain.Expense) error {
	return s.withEvent(ctx, eventID, func(tx *sql.Tx) error {
		return insertExpense(ctx, tx, eventID, x)
	})
}

// UpdateContactStatus sets a contact's follow-up status and returns the previous contact state.
// Transition rules are enforced by the caller.
// PRE: status is a known follow-up status
// POST: row updated, or ErrEventNotFound / ErrContactNotFound and nothing written
func (s *SQLiteStore) UpdateContactStatus(ctx context.Context, eventID, contactID, status string) (domain.Contact, error) {
	var before domain.Contact
	err := s.withEvent(ctx, eventID, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+contactColumns+" FROM event_contact WHERE event_id = ? AND id = ?", eventID, contactID)
		if err := scanContact(row, &before); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("contact %s: %w", contactID, ErrContactNotFound)
			}
			return err
		}
		before.EventID = eventID
		_, err := tx.ExecContext(ctx,
			"UPDATE event_contact SET follow_up_status = ? WHERE event_id = ? AND id = ?",
			status, eventID, contactID)
		return err
	})
	return before, err
}

// CompleteEvent reads the event and its owned rows inside one transaction,
// applies complete and writes back the status, summary and results only.
// Participants, contacts and expenses are never rewritten.
// PRE: complete does not depend on anything outside the event
// POST: parent row updated, or complete's error / ErrEventNotFound and nothing written
func (s *SQLiteStore) CompleteEvent(ctx context.Context, eventID string, complete func(*domain.Event) error) (domain.Event, error) {
	var e domain.Event
	err := s.withEvent(ctx, eventID, func(tx *sql.Tx) error {
		var err error
		e, err = scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM event WHERE id = ?", eventID))
		if err != nil {
			return err
		}
		where := "WHERE event_id = ?"
		participants, err := loadParticipants(ctx, tx, where, eventID)
		if err != nil {
			return err
		}
		contacts, err := loadContacts(ctx, tx, where, eventID)
		if err != nil {
			return err
		}
		expenses, err := loadExpenses(ctx, tx, where, eventID)
		if err != nil {
			return err
		}
		e.Participants, e.Contacts, e.Expenses = participants[eventID], contacts[eventID], expenses[eventID]

		if err := complete(&e); err != nil {
			return err
		}
		var results any
		if e.Results != nil {
			b, err := json.Marshal(e.Results)
			if err != nil {
				return fmt.Errorf("encode results: %w", err)
			}
			results = string(b)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE event SET status = ?, summary = ?, results = ? WHERE id = ?",
			e.Status, e.Summary, results, eventID)
		if err != nil {
			return fmt.Errorf("complete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

// ListContacts returns every contact across events, optionally filtered by follow-up status.
func (s *SQLiteStore) ListContacts(ctx context.Context, status string) ([]domain.Contact, error) {
	where, args := "", []any(nil)
	if status != "" {
		where, args = "WHERE follow_up_status = ?", []any{status}
	}
	grouped, err := loadContacts(ctx, s.db, where, args...)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM event ORDER BY date, time, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Contact
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, grouped[id]...)
	}
	return out, rows.Err()
}
