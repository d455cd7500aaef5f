package projections

import (
	"context"
	"testing"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

func TestComputeSessionStats(t *testing.T) {
	tests := []struct {
		name     string
		sessions []domainSession.Session
		want     SessionStats
	}{
		{"empty", nil, SessionStats{}},
		{
			name: "only completed sessions count attendees",
			sessions: []domainSession.Session{
				{ID: "1", Status: domainSession.StatusCompleted, Attendees: 10},
				{ID: "2", Status: domainSession.StatusCompleted, Attendees: 15},
				{ID: "3", Status: domainSession.StatusUpcoming, Attendees: 99},
				{ID: "4", Status: domainSession.StatusCancelled},
			},
			want: SessionStats{Total: 4, Completed: 2, Upcoming: 1, Cancelled: 1, AverageAttendance: 13, TotalAttendees: 25},
		},
		{
			name: "no completed sessions",
			sessions: []domainSession.Session{
				{ID: "1", Status: domainSession.StatusUpcoming},
			},
			want: SessionStats{Total: 1, Upcoming: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSessionStats(tt.sessions); got != tt.want {
				t.Errorf("stats = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeSessionStats_Sample(t *testing.T) {
	got := ComputeSessionStats(sampleData(t).Sessions)
	want := SessionStats{Total: 7, Completed: 4, Upcoming: 3, AverageAttendance: 27, TotalAttendees: 106}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestUpcomingAndRecentSessions(t *testing.T) {
	sessions := sampleData(t).Sessions

	upcoming := sessionIDs(UpcomingSessions(sessions))
	if len(upcoming) != 3 || upcoming[0] != "3" || upcoming[1] != "4" || upcoming[2] != "5" {
		t.Errorf("upcoming = %v, want [3 4 5]", upcoming)
	}

	recent := sessionIDs(RecentSessions(sessions, -1))
	want := []string{"1", "2", "6", "7"}
	if len(recent) != len(want) {
		t.Fatalf("recent = %v, want %v", recent, want)
	}
	for i := range want {
		if recent[i] != want[i] {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i], want[i])
		}
	}
	if got := RecentSessions(sessions, 2); len(got) != 2 {
		t.Errorf("recent(2) returned %d sessions", len(got))
	}
}

func TestSessionsBySpeaker(t *testing.T) {
	sessions := sampleData(t).Sessions
	if got := SessionsBySpeaker(sessions, "Pasteur Martin"); len(got) != 3 {
		t.Errorf("Pasteur Martin sessions = %d, want 3", len(got))
	}
	if got := SessionsBySpeaker(sessions, "pasteur martin"); len(got) != 0 {
		t.Errorf("speaker match is exact, got %d", len(got))
	}
	if got := SessionsByStatus(sessions, domainSession.StatusCancelled); len(got) != 0 {
		t.Errorf("cancelled = %d, want 0", len(got))
	}
}

type mockSessionStore struct {
	sessions []domainSession.Session
	err      error
}

// GetByID returns a seeded session.
// PRE: id is non-empty
// POST: Returns the seeded session or errNoSession
func (m *mockSessionStore) GetByID(_ context.Context, id string) (domainSession.Session, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return domainSession.Session{}, errNoSession
}

// List returns the seeded sessions.
// PRE: filter is valid
// POST: Returns all seeded sessions or the seeded error
func (m *mockSessionStore) List(_ context.Context, _ session.ListFilter) ([]domainSession.Session, error) {
	return m.sessions, m.err
}

func TestQuerySessionStats(t *testing.T) {
	got, err := QuerySessionStats(context.Background(), GetSessionStatsDeps{SessionStore: &mockSessionStore{sessions: sampleData(t).Sessions}})
	if err != nil {
		t.Fatalf("QuerySessionStats: %v", err)
	}
	if got.TotalAttendees != 106 {
		t.Errorf("total attendees = %d, want 106", got.TotalAttendees)
	}
}

func sessionIDs(sessions []domainSession.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
