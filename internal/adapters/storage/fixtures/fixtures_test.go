package fixtures

import (
	"strings"
	"testing"
)

// TestSample_Counts verifies the embedded dataset decodes in full.
func TestSample_Counts(t *testing.T) {
	ds, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(ds.Members) != 23 {
		t.Errorf("members = %d, want 23", len(ds.Members))
	}
	if len(ds.Sessions) != 7 {
		t.Errorf("sessions = %d, want 7", len(ds.Sessions))
	}
	if len(ds.Events) != 5 {
		t.Errorf("events = %d, want 5", len(ds.Events))
	}

	contacts := 0
	for _, e := range ds.Events {
		contacts += len(e.Contacts)
		for _, c := range e.Contacts {
			if c.EventID != e.ID {
				t.Errorf("contact %s has event %q, want %q", c.ID, c.EventID, e.ID)
			}
		}
	}
	if contacts != 8 {
		t.Errorf("contacts = %d, want 8", contacts)
	}
}

// TestSample_Details spot-checks decoded fields.
func TestSample_Details(t *testing.T) {
	ds, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	first := ds.Members[0]
	if first.Name != "Ouaraga Azie zahui johan" || !first.IsActive || len(first.AttendanceHistory) != 4 {
		t.Errorf("unexpected first member: %+v", first)
	}

	var retreat bool
	for _, e := range ds.Events {
		if e.ID == "1" {
			if e.Results == nil || e.Results.Satisfaction != 5 {
				t.Errorf("event 1 results = %+v", e.Results)
			}
			if e.TotalExpenses() != 25000 {
				t.Errorf("event 1 expenses = %d, want 25000", e.TotalExpenses())
			}
		}
		if e.ID == "5" {
			retreat = true
			if e.EndTime != "2024-03-03 18:00" {
				t.Errorf("retreat end time = %q", e.EndTime)
			}
		}
	}
	if !retreat {
		t.Error("retreat event missing")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "members:\n- id: '1'\n  nickname: x\n",
			want: "decode fixtures",
		},
		{
			name: "invalid member",
			doc:  "members:\n- id: '1'\n  name: ''\n  gender: M\n",
			want: "member 1",
		},
		{
			name: "unknown session reference",
			doc: "sessions: []\nmembers:\n- id: '1'\n  name: Ella\n  gender: F\n  isActive: true\n" +
				"  attendanceHistory:\n  - {sessionId: '9', sessionDate: '2024-01-01', status: present}\n",
			want: "unknown session 9",
		},
		{
			name: "invalid contact",
			doc: "events:\n- id: '1'\n  title: Sortie\n  type: evangelization\n  date: '2024-01-01'\n" +
				"  location: Cocody\n  status: upcoming\n  contacts:\n  - id: '1'\n    name: A\n    phone: '1'\n" +
				"    contactMethod: direct\n    interestLevel: extreme\n    followUpStatus: pending\n",
			want: "event 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	ds, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if len(ds.Members)+len(ds.Sessions)+len(ds.Events) != 0 {
		t.Errorf("expected empty dataset, got %+v", ds)
	}
}
