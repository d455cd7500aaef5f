package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Bonjour"},
		{11, "Bonjour"},
		{12, "Bon après-midi"},
		{17, "Bon après-midi"},
		{18, "Bonsoir"},
		{23, "Bonsoir"},
	}
	for _, tt := range tests {
		now := time.Date(2024, 2, 1, tt.hour, 30, 0, 0, time.UTC)
		if got := Greeting(now); got != tt.want {
			t.Errorf("Greeting(%02dh) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func sampleDashboardDeps(t *testing.T) GetDashboardDeps {
	ds := sampleData(t)
	return GetDashboardDeps{
		MemberStore:  &mockAttendanceMemberStore{members: ds.Members},
		SessionStore: &mockSessionStore{sessions: ds.Sessions},
		EventStore:   &mockEventStore{events: ds.Events},
	}
}

func TestQueryDashboard(t *testing.T) {
	admin := account.User{Permissions: account.DefaultPermissions(account.RoleAdmin)}
	query := GetDashboardQuery{
		Now:   time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Allow: admin.HasPermission,
	}
	got, err := QueryDashboard(context.Background(), query, sampleDashboardDeps(t))
	if err != nil {
		t.Fatalf("QueryDashboard: %v", err)
	}

	if got.Greeting != "Bonjour" {
		t.Errorf("greeting = %q", got.Greeting)
	}
	if got.NextSession == nil || got.NextSession.ID != "3" {
		t.Errorf("next session = %+v, want 3", got.NextSession)
	}
	if got.LastSession == nil || got.LastSession.ID != "1" {
		t.Errorf("last session = %+v, want 1", got.LastSession)
	}
	if got.LastAttendance.Present != 19 {
		t.Errorf("last attendance present = %d, want 19", got.LastAttendance.Present)
	}
	if got.ActiveMembers != 20 || got.UpcomingEvents != 2 || got.PendingContact != 2 {
		t.Errorf("counts active=%d events=%d pending=%d, want 20/2/2", got.ActiveMembers, got.UpcomingEvents, got.PendingContact)
	}
	if len(got.QuickActions) != 4 {
		t.Errorf("admin quick actions = %d, want 4", len(got.QuickActions))
	}
}

func TestQueryDashboard_QuickActionsFollowPermissions(t *testing.T) {
	tests := []struct {
		name  string
		allow func(account.Capability) bool
		want  int
	}{
		{"anonymous", nil, 0},
		{"only statistics", func(c account.Capability) bool { return c == account.ViewStatistics }, 1},
		{"standard user", account.User{Permissions: account.DefaultPermissions(account.RoleStandard)}.HasPermission, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryDashboard(context.Background(), GetDashboardQuery{Allow: tt.allow}, sampleDashboardDeps(t))
			if err != nil {
				t.Fatalf("QueryDashboard: %v", err)
			}
			if len(got.QuickActions) != tt.want {
				t.Errorf("quick actions = %d, want %d", len(got.QuickActions), tt.want)
			}
		})
	}
}

func TestQueryDashboard_EmptyAndErrors(t *testing.T) {
	empty := GetDashboardDeps{
		MemberStore:  &mockAttendanceMemberStore{},
		SessionStore: &mockSessionStore{},
		EventStore:   &mockEventStore{},
	}
	got, err := QueryDashboard(context.Background(), GetDashboardQuery{}, empty)
	if err != nil {
		t.Fatalf("QueryDashboard: %v", err)
	}
	if got.NextSession != nil || got.LastSession != nil || got.Greeting == "" {
		t.Errorf("empty dashboard = %+v", got)
	}

	boom := errors.New("boom")
	empty.EventStore = &mockEventStore{err: boom}
	if _, err := QueryDashboard(context.Background(), GetDashboardQuery{}, empty); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
