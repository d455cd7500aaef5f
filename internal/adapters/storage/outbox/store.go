package outbox

import (
	"context"

	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping storage.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListRetryable returns pending and retrying entries, oldest first.
	// PRE: limit > 0
	ListRetryable(ctx context.Context, limit int) ([]domain.Entry, error)

	// List returns entries with the given status, newest first; an empty status matches all.
	// PRE: limit > 0
	List(ctx context.Context, status string, limit int) ([]domain.Entry, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
