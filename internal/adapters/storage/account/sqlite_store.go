package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

const accountColumns = "id, email, name, role, avatar, password_hash, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new AccountStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.getOne(ctx, "id", id)
}

// GetByEmail retrieves an Account by email.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.getOne(ctx, "email", email)
}

func (s *SQLiteStore) getOne(ctx context.Context, column, value string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE "+column+" = ?", value)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", storage.ErrNotFound)
	}
	if err != nil {
		return domain.Account{}, err
	}
	perms, err := s.loadPermissions(ctx, "WHERE account_id = ?", entity.User.ID)
	if err != nil {
		return domain.Account{}, err
	}
	entity.User.Permissions = perms[entity.User.ID]
	return entity, nil
}

func (s *SQLiteStore) loadPermissions(ctx context.Context, where string, args ...any) (map[string][]domain.Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT account_id, permission_id, name, description, enabled FROM account_permission "+where+" ORDER BY account_id, position", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Permission)
	for rows.Next() {
		var accountID string
		var p domain.Permission
		var enabled int
		if err := rows.Scan(&accountID, &p.ID, &p.Name, &p.Description, &enabled); err != nil {
			return nil, err
		}
		p.Enabled = enabled != 0
		out[accountID] = append(out[accountID], p)
	}
	return out, rows.Err()
}

// Save persists an Account and replaces its permission set.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); permissions keep their slice order
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(accountColumns, ", ")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	updates := []string{
		"email=excluded.email",
		"name=excluded.name",
		"role=excluded.role",
		"avatar=excluded.avatar",
		"password_hash=excluded.password_hash",
		"failed_logins=excluded.failed_logins",
		"locked_until=excluded.locked_until",
	}
	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		accountColumns,
		placeholders,
		strings.Join(updates, ", "),
	)

	var lockedUntil any
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.UTC().Format(time.RFC3339Nano)
	}
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	u := entity.User
	_, err = tx.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.Role,
		u.Avatar,
		entity.PasswordHash,
		createdAt.UTC().Format(time.RFC3339Nano),
		entity.FailedLogins,
		lockedUntil,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM account_permission WHERE account_id = ?", u.ID); err != nil {
		return fmt.Errorf("clear permissions: %w", err)
	}
	for i, p := range u.Permissions {
		enabled := 0
		if p.Enabled {
			enabled = 1
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO account_permission (account_id, permission_id, name, description, enabled, position) VALUES (?, ?, ?, ?, ?, ?)",
			u.ID, p.ID, string(p.Name), p.Description, enabled, i,
		); err != nil {
			return fmt.Errorf("save permission %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

// Delete removes an Account; its permissions cascade.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

// List retrieves Accounts based on the filter, oldest first.
// PRE: filter has valid parameters
// POST: Returns matching entities with their permissions
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString("SELECT " + accountColumns + " FROM account")
	if filter.Role != "" {
		queryBuilder.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}
	queryBuilder.WriteString(" ORDER BY created_at, email")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	perms, err := s.loadPermissions(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].User.Permissions = perms[results[i].User.ID]
	}
	return results, nil
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.User.ID,
		&entity.User.Email,
		&entity.User.Name,
		&entity.User.Role,
		&entity.User.Avatar,
		&entity.PasswordHash,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = parseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = parseTime(lockedUntil.String)
	}
	return entity, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
