package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength = 200
	MaxNotesLength = 2000
)

// Type values
const (
	TypeEvangelization = "evangelization"
	TypeConference     = "conference"
	TypeRetreat        = "retreat"
	TypeWorkshop       = "workshop"
	TypeOutreach       = "outreach"
)

// Status values
const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Participant roles
const (
	RoleOrganizer   = "organizer"
	RoleParticipant = "participant"
	RoleSpeaker     = "speaker"
	RoleVolunteer   = "volunteer"
)

// Interest levels
const (
	InterestLow    = "low"
	InterestMedium = "medium"
	InterestHigh   = "high"
)

// Contact methods
const (
	MethodPhone    = "phone"
	MethodDirect   = "direct"
	MethodReferral = "referral"
)

// Follow-up statuses
const (
	FollowUpPending       = "pending"
	FollowUpContacted     = "contacted"
	FollowUpConverted     = "converted"
	FollowUpNotInterested = "not_interested"
)

// Domain errors
var (
	ErrEmptyTitle                = errors.New("event title cannot be empty")
	ErrInvalidType               = errors.New("event type is not recognised")
	ErrInvalidStatus             = errors.New("status must be 'upcoming', 'completed' or 'cancelled'")
	ErrInvalidDate               = errors.New("date must be YYYY-MM-DD")
	ErrEmptyLocation             = errors.New("event location cannot be empty")
	ErrNegativeAmount            = errors.New("amounts cannot be negative")
	ErrEmptyContactName          = errors.New("contact name cannot be empty")
	ErrEmptyContactPhone         = errors.New("contact phone cannot be empty")
	ErrInvalidInterest           = errors.New("interest level must be 'low', 'medium' or 'high'")
	ErrInvalidContactMethod      = errors.New("contact method must be 'phone', 'direct' or 'referral'")
	ErrInvalidFollowUpStatus     = errors.New("follow-up status is not recognised")
	ErrInvalidFollowUpTransition = errors.New("follow-up status cannot move in that direction")
	ErrEmptyParticipantName      = errors.New("participant name cannot be empty")
	ErrInvalidRole               = errors.New("participant role is not recognised")
	ErrEmptyCategory             = errors.New("expense category cannot be empty")
	ErrInvalidSatisfaction       = errors.New("satisfaction must be between 1 and 5")
	ErrNotUpcoming               = errors.New("only an upcoming event can be completed")
)

// Participant is a person registered for an event.
type Participant struct {
	ID               string `json:"id"`
	MemberID         string `json:"memberId,omitempty"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	Role             string `json:"role"`
	Confirmed        bool   `json:"confirmed"`
	RegistrationDate string `json:"registrationDate"`
	Notes            string `json:"notes,omitempty"`
}

// Validate checks the participant fields.
func (p *Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyParticipantName
	}
	switch p.Role {
	case RoleOrganizer, RoleParticipant, RoleSpeaker, RoleVolunteer:
	default:
		return ErrInvalidRole
	}
	if p.RegistrationDate != "" && !validDate(p.RegistrationDate) {
		return ErrInvalidDate
	}
	return nil
}

// Contact is a person met during an outreach event.
type Contact struct {
	ID             string `json:"id"`
	EventID        string `json:"eventId,omitempty"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	Age            int    `json:"age,omitempty"`
	Profession     string `json:"profession,omitempty"`
	Address        string `json:"address,omitempty"`
	ContactMethod  string `json:"contactMethod"`
	InterestLevel  string `json:"interestLevel"`
	FollowUpDate   string `json:"followUpDate,omitempty"`
	FollowUpStatus string `json:"followUpStatus"`
	Notes          string `json:"notes"`
	ContactedBy    string `json:"contactedBy"`
	Source         string `json:"source,omitempty"`
}

// Validate checks the contact fields.
// PRE: Contact struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyContactName
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrEmptyContactPhone
	}
	switch c.ContactMethod {
	case MethodPhone, MethodDirect, MethodReferral:
	default:
		return ErrInvalidContactMethod
	}
	switch c.InterestLevel {
	case InterestLow, InterestMedium, InterestHigh:
	default:
		return ErrInvalidInterest
	}
	if !IsValidFollowUpStatus(c.FollowUpStatus) {
		return ErrInvalidFollowUpStatus
	}
	if c.FollowUpDate != "" && !validDate(c.FollowUpDate) {
		return ErrInvalidDate
	}
	if c.Age < 0 {
		return ErrNegativeAmount
	}
	if len(c.Notes) > MaxNotesLength {
		return errors.New("contact notes cannot exceed 2000 characters")
	}
	return nil
}

// Expense is a cost booked against an event budget.
type Expense struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      int    `json:"amount"`
	Date        string `json:"date"`
	Receipt     string `json:"receipt,omitempty"`
}

// Validate checks the expense fields.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount < 0 {
		return ErrNegativeAmount
	}
	if e.Date != "" && !validDate(e.Date) {
		return ErrInvalidDate
	}
	return nil
}

// Results summarizes the outcome of a completed event.
type Results struct {
	Attendees    int    `json:"attendees"`
	NewContacts  int    `json:"newContacts"`
	Conversions  int    `json:"conversions"`
	FollowUps    int    `json:"followUps"`
	Satisfaction int    `json:"satisfaction"` // 1-5
	Impact       string `json:"impact"`
}

// Event is an outreach activity with its registrations, contacts and budget.
type Event struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Type            string        `json:"type"`
	Date            string        `json:"date"`
	Time            string        `json:"time"`
	EndTime         string        `json:"endTime,omitempty"`
	Location        string        `json:"location"`
	Description     string        `json:"description"`
	Organizer       string        `json:"organizer"`
	Status          string        `json:"status"`
	MaxParticipants int           `json:"maxParticipants,omitempty"`
	Participants    []Participant `json:"registeredParticipants"`
	Contacts        []Contact     `json:"contacts"`
	Budget          int           `json:"budget,omitempty"`
	Expenses        []Expense     `json:"expenses,omitempty"`
	Materials       []string      `json:"materials,omitempty"`
	Photos          []string      `json:"photos,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	Results         *Results      `json:"results,omitempty"`
}

// Validate checks if the Event has valid data, including owned collections.
// PRE: Event struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > MaxTitleLength {
		return errors.New("event title cannot exceed 200 characters")
	}
	if _, ok := TypeLabels[e.Type]; !ok {
		return ErrInvalidType
	}
	if !validDate(e.Date) {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Location) == "" {
		return ErrEmptyLocation
	}
	if e.Status != StatusUpcoming && e.Status != StatusCompleted && e.Status != StatusCancelled {
		return ErrInvalidStatus
	}
	if e.Budget < 0 || e.MaxParticipants < 0 {
		return ErrNegativeAmount
	}
	for i := range e.Participants {
		if err := e.Participants[i].Validate(); err != nil {
			return err
		}
	}
	for i := range e.Contacts {
		if err := e.Contacts[i].Validate(); err != nil {
			return err
		}
	}
	for i := range e.Expenses {
		if err := e.Expenses[i].Validate(); err != nil {
			return err
		}
	}
	if e.Results != nil && (e.Results.Satisfaction < 1 || e.Results.Satisfaction > 5) {
		return ErrInvalidSatisfaction
	}
	return nil
}

// Complete closes the event. Contact figures are counted from e.Contacts.
// PRE: e.Contacts holds every contact currently stored for the event
// POST: Status completed and Results set, or ErrNotUpcoming and e unchanged
func (e *Event) Complete(attendees, satisfaction int, impact, summary string) error {
	if e.Status != StatusUpcoming {
		return fmt.Errorf("%w: event is %s", ErrNotUpcoming, e.Status)
	}
	res := &Results{
		Attendees:    attendees,
		NewContacts:  len(e.Contacts),
		Satisfaction: satisfaction,
		Impact:       impact,
	}
	for _, c := range e.Contacts {
		if c.FollowUpStatus == FollowUpConverted {
			res.Conversions++
		}
		if c.FollowUpDate != "" {
			res.FollowUps++
		}
	}
	e.Status = StatusCompleted
	e.Results = res
	if summary != "" {
		e.Summary = summary
	}
	return nil
}

// TotalExpenses sums the amounts of all expenses.
// INVARIANT: Event fields are not mutated
func (e *Event) TotalExpenses() int {
	total := 0
	for _, x := range e.Expenses {
		total += x.Amount
	}
	return total
}

// ConfirmedParticipants counts confirmed registrations.
func (e *Event) ConfirmedParticipants() int {
	n := 0
	for _, p := range e.Participants {
		if p.Confirmed {
			n++
		}
	}
	return n
}

// IsFull reports whether the registration cap has been reached.
func (e *Event) IsFull() bool {
	return e.MaxParticipants > 0 && len(e.Participants) >= e.MaxParticipants
}

// IsValidFollowUpStatus reports whether s is a known follow-up status.
func IsValidFollowUpStatus(s string) bool {
	_, ok := FollowUpLabels[s]
	return ok
}

// followUpTransitions lists the allowed next states per follow-up status.
var followUpTransitions = map[string][]string{
	FollowUpPending:   {FollowUpContacted, FollowUpNotInterested},
	FollowUpContacted: {FollowUpConverted, FollowUpNotInterested},
}

// CanTransition reports whether a contact may move from one follow-up status to another.
// Staying in the same status is always allowed. Converted and not_interested are terminal.
func CanTransition(from, to string) bool {
	if !IsValidFollowUpStatus(from) || !IsValidFollowUpStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range followUpTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TypeLabels maps event types to their display label.
var TypeLabels = map[string]string{
	TypeEvangelization: "Évangélisation",
	TypeConference:     "Conférence",
	TypeRetreat:        "Retraite",
	TypeWorkshop:       "Atelier",
	TypeOutreach:       "Action sociale",
}

// InterestLabels maps interest levels to their display label.
var InterestLabels = map[string]string{
	InterestLow:    "Faible",
	InterestMedium: "Moyen",
	InterestHigh:   "Élevé",
}

// FollowUpLabels maps follow-up statuses to their display label.
var FollowUpLabels = map[string]string{
	FollowUpPending:       "En attente",
	FollowUpContacted:     "Contacté",
	FollowUpConverted:     "Converti",
	FollowUpNotInterested: "Pas intéressé",
}

// StatusLabels maps event statuses to their display label.
var StatusLabels = map[string]string{
	StatusUpcoming:  "À venir",
	StatusCompleted: "Terminé",
	StatusCancelled: "Annulé",
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
