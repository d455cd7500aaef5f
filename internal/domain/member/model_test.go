package member_test

import (
	"testing"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// TestMemberValidation tests validation of Member.
func TestMemberValidation(t *testing.T) {
	tests := []struct {
		name    string
		member  member.Member
		wantErr bool
	}{
		{
			name:    "valid member",
			member:  member.Member{ID: "1", Name: "Landry Diagone", Gender: member.GenderMale, Phone: "07 90 12 34 56", IsActive: true},
			wantErr: false,
		},
		{
			name: "valid member with history",
			member: member.Member{ID: "2", Name: "Ella", Gender: member.GenderFemale, AttendanceHistory: []member.AttendanceRecord{
				{SessionID: "1", SessionDate: "2024-01-28", Status: member.StatusPresent},
				{SessionID: "2", SessionDate: "2024-01-21", Status: member.StatusExcused},
			}},
			wantErr: false,
		},
		{
			name:    "empty name",
			member:  member.Member{ID: "1", Name: "  ", Gender: member.GenderMale},
			wantErr: true,
		},
		{
			name:    "bad gender",
			member:  member.Member{ID: "1", Name: "Kelly", Gender: "X"},
			wantErr: true,
		},
		{
			name:    "bad email",
			member:  member.Member{ID: "1", Name: "Kelly", Gender: member.GenderFemale, Email: "kelly"},
			wantErr: true,
		},
		{
			name: "duplicate session record",
			member: member.Member{ID: "1", Name: "Kelly", Gender: member.GenderFemale, AttendanceHistory: []member.AttendanceRecord{
				{SessionID: "1", Status: member.StatusPresent},
				{SessionID: "1", Status: member.StatusAbsent},
			}},
			wantErr: true,
		},
		{
			name: "unknown status",
			member: member.Member{ID: "1", Name: "Kelly", Gender: member.GenderFemale, AttendanceHistory: []member.AttendanceRecord{
				{SessionID: "1", Status: "late"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSetAttendance verifies a second record for the same session replaces the first.
func TestSetAttendance(t *testing.T) {
	m := member.Member{ID: "1", Name: "Ello", Gender: member.GenderFemale}
	m.SetAttendance(member.AttendanceRecord{SessionID: "1", SessionDate: "2024-01-28", Status: member.StatusAbsent})
	m.SetAttendance(member.AttendanceRecord{SessionID: "2", SessionDate: "2024-01-21", Status: member.StatusPresent})
	m.SetAttendance(member.AttendanceRecord{SessionID: "1", SessionDate: "2024-01-28", Status: member.StatusPresent, Note: "en retard"})

	if len(m.AttendanceHistory) != 2 {
		t.Fatalf("history len=%d want 2", len(m.AttendanceHistory))
	}
	rec, ok := m.AttendanceFor("1")
	if !ok {
		t.Fatal("record for session 1 missing")
	}
	if rec.Status != member.StatusPresent || rec.Note != "en retard" {
		t.Errorf("record = %+v", rec)
	}
	if got := m.PresentCount(); got != 2 {
		t.Errorf("PresentCount=%d want 2", got)
	}
	if _, ok := m.AttendanceFor("9"); ok {
		t.Error("unexpected record for session 9")
	}
}
