package projections

import (
	"context"
	"sort"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

// EventStats aggregates outreach results over events.
type EventStats struct {
	Total             int `json:"total"`
	Completed         int `json:"completed"`
	Upcoming          int `json:"upcoming"`
	TotalContacts     int `json:"totalContacts"`
	Conversions       int `json:"conversions"`
	PendingFollowUps  int `json:"pendingFollowUps"`
	ConversionRate    int `json:"conversionRate"`
	AverageAttendees  int `json:"averageAttendees"`
	TotalBudget       int `json:"totalBudget"`
	TotalExpenses     int `json:"totalExpenses"`
	BudgetUtilization int `json:"budgetUtilization"`
}

// ComputeEventStats aggregates events.
// AverageAttendees averages Results.Attendees over completed events that have results.
// POST: ConversionRate is 0 when there are no contacts; BudgetUtilization is 0 when there is no budget
func ComputeEventStats(events []domainEvent.Event) EventStats {
	stats := EventStats{Total: len(events)}
	withResults, attendees := 0, 0
	for _, e := range events {
		switch e.Status {
		case domainEvent.StatusCompleted:
			stats.Completed++
			if e.Results != nil {
				withResults++
				attendees += e.Results.Attendees
			}
		case domainEvent.StatusUpcoming:
			stats.Upcoming++
		}
		for _, c := range e.Contacts {
			stats.TotalContacts++
			switch c.FollowUpStatus {
			case domainEvent.FollowUpConverted:
				stats.Conversions++
			case domainEvent.FollowUpPending:
				stats.PendingFollowUps++
			}
		}
		stats.TotalBudget += e.Budget
		stats.TotalExpenses += e.TotalExpenses()
	}
	stats.ConversionRate = percent(stats.Conversions, stats.TotalContacts)
	stats.AverageAttendees = roundDiv(attendees, withResults)
	stats.BudgetUtilization = percent(stats.TotalExpenses, stats.TotalBudget)
	return stats
}

// UpcomingEvents returns upcoming events sorted by ascending date; ties keep input order.
func UpcomingEvents(events []domainEvent.Event) []domainEvent.Event {
	out := EventsByStatus(events, domainEvent.StatusUpcoming)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// RecentEvents returns at most limit completed events, most recent first.
// A limit <= 0 uses DefaultRecentLimit.
func RecentEvents(events []domainEvent.Event, limit int) []domainEvent.Event {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := EventsByStatus(events, domainEvent.StatusCompleted)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EventsByStatus filters events by status into a new slice.
func EventsByStatus(events []domainEvent.Event, status string) []domainEvent.Event {
	var out []domainEvent.Event
	for _, e := range events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// EventsByType filters events by type into a new slice.
func EventsByType(events []domainEvent.Event, eventType string) []domainEvent.Event {
	var out []domainEvent.Event
	for _, e := range events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// AllContacts flattens the contacts of every event, in event order.
func AllContacts(events []domainEvent.Event) []domainEvent.Contact {
	var out []domainEvent.Contact
	for _, e := range events {
		out = append(out, e.Contacts...)
	}
	return out
}

// ContactsByStatus returns contacts across events with the given follow-up status.
func ContactsByStatus(events []domainEvent.Event, status string) []domainEvent.Contact {
	var out []domainEvent.Contact
	for _, c := range AllContacts(events) {
		if c.FollowUpStatus == status {
			out = append(out, c)
		}
	}
	return out
}

// ContactsByEvent returns the contacts of eventID, or nil for an unknown event.
func ContactsByEvent(events []domainEvent.Event, eventID string) []domainEvent.Contact {
	for _, e := range events {
		if e.ID == eventID {
			return e.Contacts
		}
	}
	return nil
}

// ParticipantsByEvent returns the registrations of eventID, or nil for an unknown event.
func ParticipantsByEvent(events []domainEvent.Event, eventID string) []domainEvent.Participant {
	for _, e := range events {
		if e.ID == eventID {
			return e.Participants
		}
	}
	return nil
}

// GetEventStatsDeps holds dependencies for the event projections.
type GetEventStatsDeps struct {
	EventStore EventStore
}

// QueryEventStats loads every event and aggregates them.
// PRE: deps.EventStore is non-nil
func QueryEventStats(ctx context.Context, deps GetEventStatsDeps) (EventStats, error) {
	events, err := deps.EventStore.List(ctx, event.ListFilter{})
	if err != nil {
		return EventStats{}, err
	}
	return ComputeEventStats(events), nil
}
