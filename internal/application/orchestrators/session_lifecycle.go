package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// CreateSessionInput carries input for scheduling a session.
type CreateSessionInput struct {
	Date        string   `validate:"required,datetime=2006-01-02"`
	Time        string   `validate:"omitempty,datetime=15:04"`
	Duration    int      `validate:"gte=0,lte=1440"`
	Theme       string   `validate:"required,max=200"`
	Speaker     string   `validate:"required,max=100"`
	Location    string   `validate:"max=200"`
	Description string   `validate:"max=5000"`
	MaxCapacity int      `validate:"gte=0"`
	Materials   []string `validate:"dive,required"`
	Actor       domainAudit.Actor
}

// SessionDeps holds dependencies for the session lifecycle orchestrators.
type SessionDeps struct {
	SessionStore SessionStore
	MemberStore  MemberStore // needed by CompleteSession only
	AuditStore   AuditStore  // optional
	GenerateID   func() string
}

func (d SessionDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.NewString()
}

// ExecuteCreateSession schedules a new upcoming session.
// PRE: none
// POST: session persisted with Status upcoming and zero Attendees
func ExecuteCreateSession(ctx context.Context, input CreateSessionInput, deps SessionDeps) (session.Session, error) {
	if err := checkInput(input); err != nil {
		return session.Session{}, err
	}
	s := session.Session{
		ID:          deps.newID(),
		Date:        input.Date,
		Time:        input.Time,
		Duration:    input.Duration,
		Theme:       strings.TrimSpace(input.Theme),
		Speaker:     strings.TrimSpace(input.Speaker),
		Location:    input.Location,
		Description: input.Description,
		Status:      session.StatusUpcoming,
		MaxCapacity: input.MaxCapacity,
		Materials:   input.Materials,
	}
	if err := s.Validate(); err != nil {
		return session.Session{}, invalid(err)
	}
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return session.Session{}, err
	}

	slog.Info("session_event", "event", "session_created", "session_id", s.ID, "date", s.Date, "speaker", s.Speaker)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategorySession, domainAudit.ActionCreate).
		WithResource("session", s.ID).
		WithDescription(s.Theme))
	return s, nil
}

// CompleteSessionInput carries input for closing a session.
// HeadCount is used only when no member was marked present.
type CompleteSessionInput struct {
	SessionID string `validate:"required"`
	Summary   string `validate:"max=5000"`
	Notes     string `validate:"max=5000"`
	HeadCount int    `validate:"gte=0"`
	Actor     domainAudit.Actor
}

// ExecuteCompleteSession marks a session as held.
// PRE: session exists and is not completed
// POST: Status completed; Attendees is the present count, or HeadCount when nobody was marked present
func ExecuteCompleteSession(ctx context.Context, input CompleteSessionInput, deps SessionDeps) (session.Session, error) {
	if err := checkInput(input); err != nil {
		return session.Session{}, err
	}
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	members, err := deps.MemberStore.List(ctx, memberStore.ListFilter{})
	if err != nil {
		return session.Session{}, err
	}
	attendees := presentCount(members, s.ID)
	if attendees == 0 {
		attendees = input.HeadCount
	}
	if err := s.Complete(attendees, input.Summary); err != nil {
		return session.Session{}, invalid(err)
	}
	if input.Notes != "" {
		s.Notes = input.Notes
	}
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return session.Session{}, err
	}

	slog.Info("session_event", "event", "session_completed", "session_id", s.ID, "attendees", s.Attendees, "over_capacity", s.OverCapacity())
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategorySession, domainAudit.ActionComplete).
		WithResource("session", s.ID))
	return s, nil
}

// CancelSessionInput carries input for cancelling a session.
type CancelSessionInput struct {
	SessionID string `validate:"required"`
	Actor     domainAudit.Actor
}

// ExecuteCancelSession cancels an upcoming session.
// PRE: session exists and is upcoming
// POST: Status cancelled
func ExecuteCancelSession(ctx context.Context, input CancelSessionInput, deps SessionDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return err
	}
	if err := s.Cancel(); err != nil {
		return invalid(err)
	}
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return err
	}
	slog.Info("session_event", "event", "session_cancelled", "session_id", s.ID)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategorySession, domainAudit.ActionUpdate).
		WithResource("session", s.ID).
		WithDescription("cancelled"))
	return nil
}
