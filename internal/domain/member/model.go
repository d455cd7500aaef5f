package member

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
	MaxNoteLength = 500
)

// Gender values
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// AttendanceStatus is a member's status for one session.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusExcused AttendanceStatus = "excused"
)

// IsValid reports whether s is one of the three known statuses.
func (s AttendanceStatus) IsValid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusExcused
}

// Domain errors
var (
	ErrEmptyName       = errors.New("member name cannot be empty")
	ErrInvalidGender   = errors.New("gender must be 'M' or 'F'")
	ErrInvalidEmail    = errors.New("member email must be valid")
	ErrInvalidStatus   = errors.New("attendance status must be 'present', 'absent' or 'excused'")
	ErrEmptySessionID  = errors.New("attendance record must reference a session")
	ErrDuplicateRecord = errors.New("member already has a record for this session")
)

// AttendanceRecord is one member's attendance for one session.
type AttendanceRecord struct {
	SessionID   string           `json:"sessionId" yaml:"sessionId"`
	SessionDate string           `json:"sessionDate" yaml:"sessionDate"` // YYYY-MM-DD
	Status      AttendanceStatus `json:"status" yaml:"status"`
	Note        string           `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks the record fields.
// PRE: AttendanceRecord struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (r *AttendanceRecord) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrEmptySessionID
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if len(r.Note) > MaxNoteLength {
		return errors.New("attendance note cannot exceed 500 characters")
	}
	return nil
}

// Member is a person of the community whose attendance is tracked.
type Member struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Gender            string             `json:"gender"`
	Phone             string             `json:"phone,omitempty"`
	Email             string             `json:"email,omitempty"`
	JoinDate          string             `json:"joinDate,omitempty"`
	IsActive          bool               `json:"isActive"`
	AttendanceHistory []AttendanceRecord `json:"attendanceHistory"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: at most one record per session in AttendanceHistory
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if m.Gender != GenderMale && m.Gender != GenderFemale {
		return ErrInvalidGender
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	seen := make(map[string]bool, len(m.AttendanceHistory))
	for i := range m.AttendanceHistory {
		r := &m.AttendanceHistory[i]
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.SessionID] {
			return ErrDuplicateRecord
		}
		seen[r.SessionID] = true
	}
	return nil
}

// AttendanceFor returns the member's record for sessionID.
// INVARIANT: Member fields are not mutated
func (m *Member) AttendanceFor(sessionID string) (AttendanceRecord, bool) {
	for _, r := range m.AttendanceHistory {
		if r.SessionID == sessionID {
			return r, true
		}
	}
	return AttendanceRecord{}, false
}

// SetAttendance replaces the record for the record's session, or appends it.
// POST: exactly one record exists for rec.SessionID
func (m *Member) SetAttendance(rec AttendanceRecord) {
	for i := range m.AttendanceHistory {
		if m.AttendanceHistory[i].SessionID == rec.SessionID {
			m.AttendanceHistory[i] = rec
			return
		}
	}
	m.AttendanceHistory = append(m.AttendanceHistory, rec)
}

// PresentCount returns the number of records with status present.
func (m *Member) PresentCount() int {
	n := 0
	for _, r := range m.AttendanceHistory {
		if r.Status == StatusPresent {
			n++
		}
	}
	return n
}
