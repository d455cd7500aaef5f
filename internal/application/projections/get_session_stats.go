package projections

import (
	"context"
	"sort"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// SessionStats aggregates sessions by lifecycle status.
type SessionStats struct {
	Total             int `json:"total"`
	Completed         int `json:"completed"`
	Upcoming          int `json:"upcoming"`
	Cancelled         int `json:"cancelled"`
	AverageAttendance int `json:"averageAttendance"`
	TotalAttendees    int `json:"totalAttendees"`
}

// ComputeSessionStats aggregates sessions.
// TotalAttendees sums Attendees over completed sessions only.
func ComputeSessionStats(sessions []domainSession.Session) SessionStats {
	stats := SessionStats{Total: len(sessions)}
	for _, s := range sessions {
		switch s.Status {
		case domainSession.StatusCompleted:
			stats.Completed++
			stats.TotalAttendees += s.Attendees
		case domainSession.StatusUpcoming:
			stats.Upcoming++
		case domainSession.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.AverageAttendance = roundDiv(stats.TotalAttendees, stats.Completed)
	return stats
}

// UpcomingSessions returns upcoming sessions sorted by ascending date; ties keep input order.
func UpcomingSessions(sessions []domainSession.Session) []domainSession.Session {
	out := SessionsByStatus(sessions, domainSession.StatusUpcoming)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// RecentSessions returns at most limit completed sessions, most recent first.
// A limit <= 0 uses DefaultRecentLimit.
func RecentSessions(sessions []domainSession.Session, limit int) []domainSession.Session {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := SessionsByStatus(sessions, domainSession.StatusCompleted)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SessionsByStatus filters sessions by status into a new slice.
func SessionsByStatus(sessions []domainSession.Session, status string) []domainSession.Session {
	var out []domainSession.Session
	for _, s := range sessions {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// SessionsBySpeaker filters sessions by exact speaker name.
func SessionsBySpeaker(sessions []domainSession.Session, speaker string) []domainSession.Session {
	var out []domainSession.Session
	for _, s := range sessions {
		if s.Speaker == speaker {
			out = append(out, s)
		}
	}
	return out
}

// GetSessionStatsDeps holds dependencies for the session projections.
type GetSessionStatsDeps struct {
	SessionStore SessionStore
}

// QuerySessionStats loads every session and aggregates them.
// PRE: deps.SessionStore is non-nil
func QuerySessionStats(ctx context.Context, deps GetSessionStatsDeps) (SessionStats, error) {
	sessions, err := deps.SessionStore.List(ctx, session.ListFilter{})
	if err != nil {
		return SessionStats{}, err
	}
	return ComputeSessionStats(sessions), nil
}
