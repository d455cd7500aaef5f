package member

import (
	"context"

	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// Store persists Member state together with each member's attendance history.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	Delete(ctx context.Context, id string) error
	RecordAttendance(ctx context.Context, memberID string, rec domain.AttendanceRecord) error
	Count(ctx context.Context) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	Search     string
}
