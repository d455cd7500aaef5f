// Package fixtures loads the embedded sample community dataset.
package fixtures

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

//go:embed sample.yaml
var sampleYAML []byte

// Dataset is a full set of collections ready to be saved.
type Dataset struct {
	Members  []member.Member
	Sessions []session.Session
	Events   []event.Event
}

type fileDoc struct {
	Members  []memberDoc  `yaml:"members"`
	Sessions []sessionDoc `yaml:"sessions"`
	Events   []eventDoc   `yaml:"events"`
}

type memberDoc struct {
	ID                string                    `yaml:"id"`
	Name              string                    `yaml:"name"`
	Gender            string                    `yaml:"gender"`
	Phone             string                    `yaml:"phone"`
	Email             string                    `yaml:"email"`
	JoinDate          string                    `yaml:"joinDate"`
	IsActive          bool                      `yaml:"isActive"`
	AttendanceHistory []member.AttendanceRecord `yaml:"attendanceHistory"`
}

type sessionDoc struct {
	ID          string   `yaml:"id"`
	Date        string   `yaml:"date"`
	Time        string   `yaml:"time"`
	Duration    int      `yaml:"duration"`
	Theme       string   `yaml:"theme"`
	Speaker     string   `yaml:"speaker"`
	Location    string   `yaml:"location"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Attendees   int      `yaml:"attendees"`
	Summary     string   `yaml:"summary"`
	Notes       string   `yaml:"notes"`
	MaxCapacity int      `yaml:"maxCapacity"`
	Materials   []string `yaml:"materials"`
}

type participantDoc struct {
	ID               string `yaml:"id"`
	MemberID         string `yaml:"memberId"`
	Name             string `yaml:"name"`
	Phone            string `yaml:"phone"`
	Role             string `yaml:"role"`
	Confirmed        bool   `yaml:"confirmed"`
	RegistrationDate string `yaml:"registrationDate"`
	Notes            string `yaml:"notes"`
}

type contactDoc struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Phone          string `yaml:"phone"`
	Email          string `yaml:"email"`
	Age            int    `yaml:"age"`
	Profession     string `yaml:"profession"`
	Address        string `yaml:"address"`
	ContactMethod  string `yaml:"contactMethod"`
	InterestLevel  string `yaml:"interestLevel"`
	FollowUpDate   string `yaml:"followUpDate"`
	FollowUpStatus string `yaml:"followUpStatus"`
	Notes          string `yaml:"notes"`
	ContactedBy    string `yaml:"contactedBy"`
	Source         string `yaml:"source"`
}

type expenseDoc struct {
	ID          string `yaml:"id"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Amount      int    `yaml:"amount"`
	Date        string `yaml:"date"`
	Receipt     string `yaml:"receipt"`
}

type resultsDoc struct {
	Attendees    int    `yaml:"attendees"`
	NewContacts  int    `yaml:"newContacts"`
	Conversions  int    `yaml:"conversions"`
	FollowUps    int    `yaml:"followUps"`
	Satisfaction int    `yaml:"satisfaction"`
	Impact       string `yaml:"impact"`
}

type eventDoc struct {
	ID              string           `yaml:"id"`
	Title           string           `yaml:"title"`
	Type            string           `yaml:"type"`
	Date            string           `yaml:"date"`
	Time            string           `yaml:"time"`
	EndTime         string           `yaml:"endTime"`
	Location        string           `yaml:"location"`
	Description     string           `yaml:"description"`
	Organizer       string           `yaml:"organizer"`
	Status          string           `yaml:"status"`
	MaxParticipants int              `yaml:"maxParticipants"`
	Participants    []participantDoc `yaml:"participants"`
	Contacts        []contactDoc     `yaml:"contacts"`
	Budget          int              `yaml:"budget"`
	Expenses        []expenseDoc     `yaml:"expenses"`
	Materials       []string         `yaml:"materials"`
	Photos          []string         `yaml:"photos"`
	Summary         string           `yaml:"summary"`
	Results         *resultsDoc      `yaml:"results"`
}

// Sample returns the embedded sample dataset.
// POST: every entity passes its Validate method
func Sample() (Dataset, error) {
	return Parse(bytes.NewReader(sampleYAML))
}

// Parse decodes and validates a fixture document. Unknown keys are rejected.
func Parse(r io.Reader) (Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("decode fixtures: %w", err)
	}

	var ds Dataset
	sessionIDs := make(map[string]bool, len(doc.Sessions))
	for _, d := range doc.Sessions {
		s := d.toDomain()
		if err := s.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("session %s: %w", d.ID, err)
		}
		sessionIDs[s.ID] = true
		ds.Sessions = append(ds.Sessions, s)
	}
	for _, d := range doc.Members {
		m := d.toDomain()
		if err := m.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("member %s: %w", d.ID, err)
		}
		for _, r := range m.AttendanceHistory {
			if !sessionIDs[r.SessionID] {
				return Dataset{}, fmt.Errorf("member %s: unknown session %s", m.ID, r.SessionID)
			}
		}
		ds.Members = append(ds.Members, m)
	}
	for _, d := range doc.Events {
		e := d.toDomain()
		if err := e.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("event %s: %w", d.ID, err)
		}
		ds.Events = append(ds.Events, e)
	}
	return ds, nil
}

func (d memberDoc) toDomain() member.Member {
	return member.Member{
		ID:                d.ID,
		Name:              d.Name,
		Gender:            d.Gender,
		Phone:             d.Phone,
		Email:             d.Email,
		JoinDate:          d.JoinDate,
		IsActive:          d.IsActive,
		AttendanceHistory: d.AttendanceHistory,
	}
}

func (d sessionDoc) toDomain() session.Session {
	return session.Session{
		ID:          d.ID,
		Date:        d.Date,
		Time:        d.Time,
		Duration:    d.Duration,
		Theme:       d.Theme,
		Speaker:     d.Speaker,
		Location:    d.Location,
		Description: d.Description,
		Status:      d.Status,
		Attendees:   d.Attendees,
		Summary:     d.Summary,
		Notes:       d.Notes,
		MaxCapacity: d.MaxCapacity,
		Materials:   d.Materials,
	}
}

func (d eventDoc) toDomain() event.Event {
	e := event.Event{
		ID:              d.ID,
		Title:           d.Title,
		Type:            d.Type,
		Date:            d.Date,
		Time:            d.Time,
		EndTime:         d.EndTime,
		Location:        d.Location,
		Description:     d.Description,
		Organizer:       d.Organizer,
		Status:          d.Status,
		MaxParticipants: d.MaxParticipants,
		Budget:          d.Budget,
		Materials:       d.Materials,
		Photos:          d.Photos,
		Summary:         d.Summary,
	}
	for _, p := range d.Participants {
		e.Participants = append(e.Participants, event.Participant(p))
	}
	for _, c := range d.Contacts {
		e.Contacts = append(e.Contacts, event.Contact{
			ID:             c.ID,
			EventID:        d.ID,
			Name:           c.Name,
			Phone:          c.Phone,
			Email:          c.Email,
			Age:            c.Age,
			Profession:     c.Profession,
			Address:        c.Address,
			ContactMethod:  c.ContactMethod,
			InterestLevel:  c.InterestLevel,
			FollowUpDate:   c.FollowUpDate,
			FollowUpStatus: c.FollowUpStatus,
			Notes:          c.Notes,
			ContactedBy:    c.ContactedBy,
			Source:         c.Source,
		})
	}
	for _, x := range d.Expenses {
		e.Expenses = append(e.Expenses, event.Expense(x))
	}
	if d.Results != nil {
		r := event.Results(*d.Results)
		e.Results = &r
	}
	return e
}
