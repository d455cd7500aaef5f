package projections

import (
	"context"
	"sort"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// EventTypeBreakdown summarizes the events of one type.
type EventTypeBreakdown struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Events      int    `json:"events"`
	Contacts    int    `json:"contacts"`
	Conversions int    `json:"conversions"`
}

// MonthlyAttendance summarizes the completed sessions of one month.
type MonthlyAttendance struct {
	Month     string `json:"month"` // YYYY-MM
	Sessions  int    `json:"sessions"`
	Attendees int    `json:"attendees"`
	Average   int    `json:"average"`
}

// MemberRate pairs a member with their attendance rate.
type MemberRate struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Rate     int    `json:"rate"`
}

// StatisticsResult carries the output of the statistics projection.
type StatisticsResult struct {
	Attendance    AttendanceStats      `json:"attendance"`
	Events        EventStats           `json:"events"`
	Sessions      SessionStats         `json:"sessions"`
	ByEventType   []EventTypeBreakdown `json:"byEventType"`
	ByMonth       []MonthlyAttendance  `json:"byMonth"`
	LowAttendance []MemberRate         `json:"lowAttendance"`
}

// EventTypeBreakdowns groups events by type, ordered by type name.
// Types without events are omitted.
func EventTypeBreakdowns(events []domainEvent.Event) []EventTypeBreakdown {
	byType := make(map[string]*EventTypeBreakdown)
	for _, e := range events {
		b, ok := byType[e.Type]
		if !ok {
			b = &EventTypeBreakdown{Type: e.Type, Label: domainEvent.TypeLabels[e.Type]}
			byType[e.Type] = b
		}
		b.Events++
		b.Contacts += len(e.Contacts)
		for _, c := range e.Contacts {
			if c.FollowUpStatus == domainEvent.FollowUpConverted {
				b.Conversions++
			}
		}
	}
	out := make([]EventTypeBreakdown, 0, len(byType))
	for _, b := range byType {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// MonthlySessionAttendance groups completed sessions by month, oldest first.
func MonthlySessionAttendance(sessions []domainSession.Session) []MonthlyAttendance {
	byMonth := make(map[string]*MonthlyAttendance)
	for _, s := range SessionsByStatus(sessions, domainSession.StatusCompleted) {
		if len(s.Date) < 7 {
			continue
		}
		month := s.Date[:7]
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyAttendance{Month: month}
			byMonth[month] = m
		}
		m.Sessions++
		m.Attendees += s.Attendees
	}
	out := make([]MonthlyAttendance, 0, len(byMonth))
	for _, m := range byMonth {
		m.Average = roundDiv(m.Attendees, m.Sessions)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// GetStatisticsDeps holds dependencies for the statistics projection.
type GetStatisticsDeps struct {
	MemberStore  MemberStore
	SessionStore SessionStore
	EventStore   EventStore
}

// QueryStatistics loads every collection once and computes all statistics blocks.
// PRE: deps stores are non-nil
func QueryStatistics(ctx context.Context, deps GetStatisticsDeps) (StatisticsResult, error) {
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return StatisticsResult{}, err
	}
	sessions, err := deps.SessionStore.List(ctx, session.ListFilter{})
	if err != nil {
		return StatisticsResult{}, err
	}
	events, err := deps.EventStore.List(ctx, event.ListFilter{})
	if err != nil {
		return StatisticsResult{}, err
	}

	result := StatisticsResult{
		Attendance:  ComputeAttendanceStats(members),
		Events:      ComputeEventStats(events),
		Sessions:    ComputeSessionStats(sessions),
		ByEventType: EventTypeBreakdowns(events),
		ByMonth:     MonthlySessionAttendance(sessions),
	}
	for _, m := range MembersWithLowAttendance(members, DefaultLowAttendanceThreshold) {
		result.LowAttendance = append(result.LowAttendance, MemberRate{
			MemberID: m.ID,
			Name:     m.Name,
			Rate:     attendanceRate(m),
		})
	}
	return result, nil
}
