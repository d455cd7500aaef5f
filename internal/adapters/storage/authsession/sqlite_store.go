// Package authsession persists per-browser auth state rows behind auth.Storage.
package authsession

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
)

// timeLayout has a fixed width so stored timestamps compare lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultTTL is how long a row stays readable after its last write.
const DefaultTTL = 24 * time.Hour

// SQLiteStore keeps key/value rows per browser token in auth_state.
type SQLiteStore struct {
	db  storage.SQLDB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a store whose rows expire after DefaultTTL.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: DefaultTTL, now: time.Now}
}

// Scoped returns the auth.Storage for one browser token.
// PRE: token is non-empty
func (s *SQLiteStore) Scoped(token string) *Scoped {
	return &Scoped{store: s, token: token}
}

// DeleteExpired removes rows older than the TTL and returns how many were removed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, "DELETE FROM auth_state WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired auth state: %w", err)
	}
	return res.RowsAffected()
}

// Scoped is the auth.Storage view of a single token's rows.
type Scoped struct {
	store *SQLiteStore
	token string
}

var _ auth.Storage = (*Scoped)(nil)

// GetItem returns the value stored under key, ignoring expired rows.
// POST: ok is false when the row is missing or older than the TTL
func (s *Scoped) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value, updatedAt string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value, updated_at FROM auth_state WHERE token = ? AND key = ?", s.token, key,
	).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read auth state: %w", err)
	}
	ts, err := time.Parse(timeLayout, updatedAt)
	if err != nil || s.store.now().Sub(ts) > s.store.ttl {
		return "", false, nil
	}
	return value, true, nil
}

// SetItem upserts the value under key and refreshes its timestamp.
func (s *Scoped) SetItem(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx,
		`INSERT INTO auth_state (token, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(token, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		s.token, key, value, s.store.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write auth state: %w", err)
	}
	return nil
}

// RemoveItem deletes the row for key. Removing a missing key is not an error.
func (s *Scoped) RemoveItem(ctx context.Context, key string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM auth_state WHERE token = ? AND key = ?", s.token, key)
	if err != nil {
		return fmt.Errorf("remove auth state: %w", err)
	}
	return nil
}
