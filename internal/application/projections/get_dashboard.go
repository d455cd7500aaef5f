package projections

import (
	"context"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/navigation"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// Greeting returns the French salutation for the hour of now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Bonjour"
	case h < 18:
		return "Bon après-midi"
	default:
		return "Bonsoir"
	}
}

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	Now   time.Time
	Allow func(account.Capability) bool // usually auth.State.HasPermission
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	MemberStore  MemberStore
	SessionStore SessionStore
	EventStore   EventStore
}

// DashboardResult carries the output of the dashboard projection.
type DashboardResult struct {
	Greeting       string
	NextSession    *domainSession.Session
	LastSession    *domainSession.Session
	LastAttendance SessionAttendance
	ActiveMembers  int
	UpcomingEvents int
	PendingContact int
	QuickActions   []navigation.Item
}

// QueryDashboard assembles the home page.
// NextSession is the earliest upcoming session; LastSession the most recent completed one.
// PRE: deps stores are non-nil
// POST: QuickActions only holds items the caller is allowed to open
func QueryDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (DashboardResult, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	result := DashboardResult{
		Greeting:     Greeting(now),
		QuickActions: navigation.Visible(navigation.QuickActions(), query.Allow, 0),
	}

	sessions, err := deps.SessionStore.List(ctx, session.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	events, err := deps.EventStore.List(ctx, event.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}

	if upcoming := UpcomingSessions(sessions); len(upcoming) > 0 {
		result.NextSession = &upcoming[0]
	}
	if recent := RecentSessions(sessions, 1); len(recent) > 0 {
		result.LastSession = &recent[0]
		result.LastAttendance = SessionAttendanceBySessionID(members, recent[0].ID)
	}
	result.ActiveMembers = ActiveMembersCount(members)
	result.UpcomingEvents = len(UpcomingEvents(events))
	result.PendingContact = len(ContactsByStatus(events, domainEvent.FollowUpPending))
	return result, nil
}
