package session

import (
	"context"

	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// Store persists Session state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Session, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Session, error)
	Save(ctx context.Context, value domain.Session) error
	Delete(ctx context.Context, id string) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit   int
	Offset  int
	Status  string
	Speaker string
}
