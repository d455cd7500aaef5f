package projections

import (
	"context"
	"math"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	domainMember "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// MemberStore interface for member queries.
type MemberStore interface {
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
}

// SessionStore interface for session queries.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (domainSession.Session, error)
	List(ctx context.Context, filter session.ListFilter) ([]domainSession.Session, error)
}

// EventStore interface for event queries.
type EventStore interface {
	List(ctx context.Context, filter event.ListFilter) ([]domainEvent.Event, error)
}

// DefaultRecentLimit is used by the Recent* selections when limit <= 0.
const DefaultRecentLimit = 5

// percent returns round(part/whole*100), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// roundDiv returns round(sum/n), or 0 when n is 0.
func roundDiv(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
