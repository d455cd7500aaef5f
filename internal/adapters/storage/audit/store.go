package audit

import (
	"context"

	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
)

// Store keeps the trail of console mutations and sign-ins.
type Store interface {
	// Save appends one event.
	// PRE: event has an ID and timestamp
	// POST: the event is readable through List and GetByID
	Save(ctx context.Context, event domain.Event) error

	// List returns the newest events matching filter.
	// PRE: limit > 0
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// GetByID returns one event or an error wrapping storage.ErrNotFound.
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter narrows List, as used by the admin audit page. A nil field matches everything.
type Filter struct {
	Category   *domain.Category
	Action     *domain.Action
	ActorID    *string
	ResourceID *string
	FromDate   *string
}

var _ Store = (*SQLiteStore)(nil)
