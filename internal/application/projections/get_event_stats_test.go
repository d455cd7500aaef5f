package projections

import (
	"context"
	"testing"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

func contactsWith(statuses ...string) []domainEvent.Contact {
	out := make([]domainEvent.Contact, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, domainEvent.Contact{ID: string(rune('a' + i)), FollowUpStatus: s})
	}
	return out
}

func TestComputeEventStats_ConversionRate(t *testing.T) {
	events := []domainEvent.Event{{
		ID:     "1",
		Status: domainEvent.StatusCompleted,
		Contacts: contactsWith(
			domainEvent.FollowUpConverted,
			domainEvent.FollowUpPending,
			domainEvent.FollowUpContacted,
			domainEvent.FollowUpNotInterested,
		),
	}}
	got := ComputeEventStats(events)
	if got.TotalContacts != 4 || got.Conversions != 1 || got.ConversionRate != 25 {
		t.Errorf("contacts=%d conversions=%d rate=%d, want 4/1/25", got.TotalContacts, got.Conversions, got.ConversionRate)
	}
	if got.PendingFollowUps != 1 {
		t.Errorf("pending = %d, want 1", got.PendingFollowUps)
	}
}

func TestComputeEventStats_ZeroDenominators(t *testing.T) {
	got := ComputeEventStats([]domainEvent.Event{
		{ID: "1", Status: domainEvent.StatusUpcoming},
		{ID: "2", Status: domainEvent.StatusCompleted},
	})
	if got.ConversionRate != 0 || got.BudgetUtilization != 0 || got.AverageAttendees != 0 {
		t.Errorf("stats = %+v, want zero rates", got)
	}
	if got.Total != 2 || got.Completed != 1 || got.Upcoming != 1 {
		t.Errorf("counts = %+v", got)
	}
	if empty := ComputeEventStats(nil); empty != (EventStats{}) {
		t.Errorf("empty = %+v, want zero", empty)
	}
}

func TestComputeEventStats_Sample(t *testing.T) {
	got := ComputeEventStats(sampleData(t).Events)
	want := EventStats{
		Total:             5,
		Completed:         3,
		Upcoming:          2,
		TotalContacts:     8,
		Conversions:       2,
		PendingFollowUps:  2,
		ConversionRate:    25,
		AverageAttendees:  31,
		TotalBudget:       320000,
		TotalExpenses:     116000,
		BudgetUtilization: 36,
	}
	if got != want {
		t.Errorf("stats =\n%+v\nwant\n%+v", got, want)
	}
}

func TestUpcomingAndRecentEvents(t *testing.T) {
	events := sampleData(t).Events

	upcoming := UpcomingEvents(events)
	if len(upcoming) != 2 || upcoming[0].ID != "3" || upcoming[1].ID != "5" {
		t.Errorf("upcoming = %v, want [3 5]", eventIDs(upcoming))
	}

	recent := RecentEvents(events, 0)
	if got := eventIDs(recent); len(got) != 3 || got[0] != "2" || got[1] != "1" || got[2] != "4" {
		t.Errorf("recent = %v, want [2 1 4]", got)
	}
	if got := RecentEvents(events, 1); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("recent(1) = %v, want [2]", eventIDs(got))
	}
}

func TestUpcomingEvents_StableOnTies(t *testing.T) {
	events := []domainEvent.Event{
		{ID: "b", Date: "2024-03-01", Status: domainEvent.StatusUpcoming},
		{ID: "a", Date: "2024-03-01", Status: domainEvent.StatusUpcoming},
		{ID: "c", Date: "2024-02-01", Status: domainEvent.StatusUpcoming},
	}
	got := eventIDs(UpcomingEvents(events))
	if got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Errorf("order = %v, want [c b a]", got)
	}
	if events[0].ID != "b" {
		t.Error("input slice was reordered")
	}
}

func TestContactSelections(t *testing.T) {
	events := sampleData(t).Events
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"all contacts", len(AllContacts(events)), 8},
		{"converted", len(ContactsByStatus(events, domainEvent.FollowUpConverted)), 2},
		{"pending", len(ContactsByStatus(events, domainEvent.FollowUpPending)), 2},
		{"contacts of event 1", len(ContactsByEvent(events, "1")), 4},
		{"contacts of unknown event", len(ContactsByEvent(events, "x")), 0},
		{"participants of unknown event", len(ParticipantsByEvent(events, "x")), 0},
		{"evangelization events", len(EventsByType(events, domainEvent.TypeEvangelization)), 3},
		{"completed events", len(EventsByStatus(events, domainEvent.StatusCompleted)), 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

type mockEventStore struct {
	events []domainEvent.Event
	err    error
}

// List returns the seeded events.
// PRE: filter is valid
// POST: Returns all seeded events or the seeded error
func (m *mockEventStore) List(_ context.Context, _ event.ListFilter) ([]domainEvent.Event, error) {
	return m.events, m.err
}

func TestQueryEventStats(t *testing.T) {
	got, err := QueryEventStats(context.Background(), GetEventStatsDeps{EventStore: &mockEventStore{events: sampleData(t).Events}})
	if err != nil {
		t.Fatalf("QueryEventStats: %v", err)
	}
	if got.ConversionRate != 25 {
		t.Errorf("conversion rate = %d, want 25", got.ConversionRate)
	}
}

func eventIDs(events []domainEvent.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
