package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

// EventStore defines the event persistence needed by event orchestrators.
type EventStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context, filter eventStore.ListFilter) ([]event.Event, error)
	Save(ctx context.Context, e event.Event) error
	AddContact(ctx context.Context, eventID string, c event.Contact) error
	AddParticipant(ctx context.Context, eventID string, p event.Participant) error
	AddExpense(ctx context.Context, eventID string, x event.Expense) error
	UpdateContactStatus(ctx context.Context, eventID, contactID, status string) (event.Contact, error)
	CompleteEvent(ctx context.Context, eventID string, complete func(*event.Event) error) (event.Event, error)
}

// EventDeps holds dependencies shared by the event orchestrators.
type EventDeps struct {
	EventStore EventStore
	AuditStore AuditStore // optional
	GenerateID func() string
	Now        func() time.Time
}

func (d EventDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.NewString()
}

func (d EventDeps) today() string {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	return now.Format("2006-01-02")
}

// CreateEventInput carries input for planning an outreach event.
type CreateEventInput struct {
	Title           string   `validate:"required,max=200"`
	Type            string   `validate:"required,oneof=evangelization conference retreat workshop outreach"`
	Date            string   `validate:"required,datetime=2006-01-02"`
	Time            string   `validate:"omitempty,datetime=15:04"`
	EndTime         string   `validate:"max=32"`
	Location        string   `validate:"required,max=200"`
	Description     string   `validate:"max=5000"`
	Organizer       string   `validate:"max=100"`
	MaxParticipants int      `validate:"gte=0"`
	Budget          int      `validate:"gte=0"`
	Materials       []string `validate:"dive,required"`
	Actor           domainAudit.Actor
}

// ExecuteCreateEvent plans a new upcoming event with empty owned collections.
// POST: event persisted with Status upcoming
func ExecuteCreateEvent(ctx context.Context, input CreateEventInput, deps EventDeps) (event.Event, error) {
	if err := checkInput(input); err != nil {
		return event.Event{}, err
	}
	e := event.Event{
		ID:              deps.newID(),
		Title:           strings.TrimSpace(input.Title),
		Type:            input.Type,
		Date:            input.Date,
		Time:            input.Time,
		EndTime:         input.EndTime,
		Location:        strings.TrimSpace(input.Location),
		Description:     input.Description,
		Organizer:       input.Organizer,
		Status:          event.StatusUpcoming,
		MaxParticipants: input.MaxParticipants,
		Budget:          input.Budget,
		Materials:       input.Materials,
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, invalid(err)
	}
	if err := deps.EventStore.Save(ctx, e); err != nil {
		return event.Event{}, err
	}

	slog.Info("event_event", "event", "event_created", "event_id", e.ID, "type", e.Type, "date", e.Date)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionCreate).
		WithResource("event", e.ID).
		WithDescription(e.Title))
	return e, nil
}

// AddParticipantInput carries input for registering someone to an event.
type AddParticipantInput struct {
	EventID   string `validate:"required"`
	MemberID  string
	Name      string `validate:"required,max=100"`
	Phone     string `validate:"max=32"`
	Role      string `validate:"required,oneof=organizer participant speaker volunteer"`
	Confirmed bool
	Notes     string `validate:"max=500"`
	Actor     domainAudit.Actor
}

// ErrEventFull is returned when the registration cap has been reached.
var ErrEventFull = fmt.Errorf("%w: event is full", ErrInvalidInput)

// ExecuteAddParticipantToEvent registers a participant.
// PRE: event exists and is not full
// POST: participant appended with today's registration date
func ExecuteAddParticipantToEvent(ctx context.Context, input AddParticipantInput, deps EventDeps) (event.Participant, error) {
	if err := checkInput(input); err != nil {
		return event.Participant{}, err
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Participant{}, err
	}
	if e.IsFull() {
		return event.Participant{}, ErrEventFull
	}
	p := event.Participant{
		ID:               deps.newID(),
		MemberID:         input.MemberID,
		Name:             strings.TrimSpace(input.Name),
		Phone:            input.Phone,
		Role:             input.Role,
		Confirmed:        input.Confirmed,
		RegistrationDate: deps.today(),
		Notes:            input.Notes,
	}
	if err := p.Validate(); err != nil {
		return event.Participant{}, invalid(err)
	}
	if err := deps.EventStore.AddParticipant(ctx, input.EventID, p); err != nil {
		return event.Participant{}, err
	}

	slog.Info("event_event", "event", "participant_added", "event_id", input.EventID, "participant_id", p.ID, "role", p.Role)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionUpdate).
		WithResource("event", input.EventID).
		WithDescription("participant " + p.Name))
	return p, nil
}

// AddExpenseInput carries input for booking an expense.
type AddExpenseInput struct {
	EventID     string `validate:"required"`
	Category    string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Amount      int    `validate:"gte=0"`
	Date        string `validate:"omitempty,datetime=2006-01-02"`
	Receipt     string `validate:"max=500"`
	Actor       domainAudit.Actor
}

// ExecuteAddExpenseToEvent books an expense against an event.
// Date defaults to today.
// POST: expense persisted; the event's TotalExpenses grows by Amount
func ExecuteAddExpenseToEvent(ctx context.Context, input AddExpenseInput, deps EventDeps) (event.Expense, error) {
	if err := checkInput(input); err != nil {
		return event.Expense{}, err
	}
	x := event.Expense{
		ID:          deps.newID(),
		Category:    strings.TrimSpace(input.Category),
		Description: input.Description,
		Amount:      input.Amount,
		Date:        input.Date,
		Receipt:     input.Receipt,
	}
	if x.Date == "" {
		x.Date = deps.today()
	}
	if err := x.Validate(); err != nil {
		return event.Expense{}, invalid(err)
	}
	if err := deps.EventStore.AddExpense(ctx, input.EventID, x); err != nil {
		return event.Expense{}, err
	}

	slog.Info("event_event", "event", "expense_added", "event_id", input.EventID, "amount", x.Amount)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionUpdate).
		WithResource("event", input.EventID).
		WithDescription(fmt.Sprintf("expense %s: %d", x.Category, x.Amount)))
	return x, nil
}

// CompleteEventInput carries the outcome of a held event.
type CompleteEventInput struct {
	EventID      string `validate:"required"`
	Attendees    int    `validate:"gte=0"`
	Satisfaction int    `validate:"required,min=1,max=5"`
	Impact       string `validate:"max=2000"`
	Summary      string `validate:"max=5000"`
	Actor        domainAudit.Actor
}

// ExecuteCompleteEvent closes an event and records its results.
// Contact-derived figures come from the contacts stored when the completion commits.
// PRE: event exists and is upcoming
// POST: Status completed and Results set; owned collections untouched
func ExecuteCompleteEvent(ctx context.Context, input CompleteEventInput, deps EventDeps) (event.Event, error) {
	if err := checkInput(input); err != nil {
		return event.Event{}, err
	}
	e, err := deps.EventStore.CompleteEvent(ctx, input.EventID, func(e *event.Event) error {
		if err := e.Complete(input.Attendees, input.Satisfaction, input.Impact, input.Summary); err != nil {
			return invalid(err)
		}
		if err := e.Validate(); err != nil {
			return invalid(err)
		}
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}
	slog.Info("event_event", "event", "event_completed", "event_id", e.ID, "attendees", e.Results.Attendees, "contacts", e.Results.NewContacts)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionComplete).
		WithResource("event", e.ID))
	return e, nil
}
