package session

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxThemeLength   = 200
	MaxSummaryLength = 5000
)

// Status values
const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Domain errors
var (
	ErrEmptyTheme       = errors.New("session theme cannot be empty")
	ErrEmptySpeaker     = errors.New("session speaker cannot be empty")
	ErrInvalidDate      = errors.New("session date must be YYYY-MM-DD")
	ErrInvalidTime      = errors.New("session time must be HH:MM")
	ErrInvalidStatus    = errors.New("status must be 'upcoming', 'completed' or 'cancelled'")
	ErrNegativeCount    = errors.New("attendees, duration and capacity cannot be negative")
	ErrAlreadyCompleted = errors.New("session is already completed")
	ErrAlreadyCancelled = errors.New("session is already cancelled")
)

// Session is a scheduled spiritual gathering.
type Session struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Time        string   `json:"time"` // HH:MM
	Duration    int      `json:"duration,omitempty"` // minutes
	Theme       string   `json:"theme"`
	Speaker     string   `json:"speaker"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Attendees   int      `json:"attendees"`
	Summary     string   `json:"summary,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	MaxCapacity int      `json:"maxCapacity,omitempty"`
	Materials   []string `json:"materials,omitempty"`
}

// Validate checks if the Session has valid data.
// PRE: Session struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (s *Session) Validate() error {
	if strings.TrimSpace(s.Theme) == "" {
		return ErrEmptyTheme
	}
	if len(s.Theme) > MaxThemeLength {
		return errors.New("session theme cannot exceed 200 characters")
	}
	if strings.TrimSpace(s.Speaker) == "" {
		return ErrEmptySpeaker
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return ErrInvalidDate
	}
	if s.Time != "" {
		if _, err := time.Parse("15:04", s.Time); err != nil {
			return ErrInvalidTime
		}
	}
	if s.Status != StatusUpcoming && s.Status != StatusCompleted && s.Status != StatusCancelled {
		return ErrInvalidStatus
	}
	if s.Attendees < 0 || s.Duration < 0 || s.MaxCapacity < 0 {
		return ErrNegativeCount
	}
	if len(s.Summary) > MaxSummaryLength {
		return errors.New("session summary cannot exceed 5000 characters")
	}
	return nil
}

// IsUpcoming returns true if the session has not happened yet.
func (s *Session) IsUpcoming() bool { return s.Status == StatusUpcoming }

// IsCompleted returns true if the session took place.
func (s *Session) IsCompleted() bool { return s.Status == StatusCompleted }

// Complete marks the session as held.
// PRE: session is not completed
// POST: Status is completed, Attendees and Summary are set
func (s *Session) Complete(attendees int, summary string) error {
	if s.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if attendees < 0 {
		return ErrNegativeCount
	}
	s.Status = StatusCompleted
	s.Attendees = attendees
	if summary != "" {
		s.Summary = summary
	}
	return nil
}

// Cancel marks an upcoming session as cancelled.
// PRE: session is upcoming
// POST: Status is cancelled
func (s *Session) Cancel() error {
	switch s.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrAlreadyCompleted
	}
	s.Status = StatusCancelled
	return nil
}

// OverCapacity reports whether more people attended than the room holds.
func (s *Session) OverCapacity() bool {
	return s.MaxCapacity > 0 && s.Attendees > s.MaxCapacity
}

// StatusLabels maps statuses to their display label.
var StatusLabels = map[string]string{
	StatusUpcoming:  "À venir",
	StatusCompleted: "Terminée",
	StatusCancelled: "Annulée",
}
