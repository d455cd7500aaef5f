package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// MemberStore defines the member persistence needed by attendance orchestrators.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	List(ctx context.Context, filter memberStore.ListFilter) ([]member.Member, error)
	RecordAttendance(ctx context.Context, memberID string, rec member.AttendanceRecord) error
}

// SessionStore defines the session persistence needed by orchestrators.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
	List(ctx context.Context, filter sessionStore.ListFilter) ([]session.Session, error)
	Save(ctx context.Context, s session.Session) error
}

// RecordAttendanceInput carries input for the attendance orchestrator.
type RecordAttendanceInput struct {
	MemberID  string `validate:"required"`
	SessionID string `validate:"required"`
	Status    string `validate:"required,oneof=present absent excused"`
	Note      string `validate:"max=500"`
	Actor     domainAudit.Actor
}

// RecordAttendanceDeps holds dependencies for RecordAttendance and ToggleAttendance.
type RecordAttendanceDeps struct {
	MemberStore  MemberStore
	SessionStore SessionStore
	AuditStore   AuditStore // optional
}

// ExecuteRecordAttendance sets a member's status for a session.
// PRE: member and session exist
// POST: exactly one record exists for (member, session) with the given status;
// a completed session's Attendees equals its present count
func ExecuteRecordAttendance(ctx context.Context, input RecordAttendanceInput, deps RecordAttendanceDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return err
	}
	rec := member.AttendanceRecord{
		SessionID:   s.ID,
		SessionDate: s.Date,
		Status:      member.AttendanceStatus(input.Status),
		Note:        input.Note,
	}
	if err := rec.Validate(); err != nil {
		return invalid(err)
	}
	if err := deps.MemberStore.RecordAttendance(ctx, input.MemberID, rec); err != nil {
		return err
	}

	if s.IsCompleted() {
		if err := syncAttendees(ctx, s, deps); err != nil {
			return err
		}
	}

	slog.Info("attendance_event", "event", "attendance_recorded", "member_id", input.MemberID, "session_id", s.ID, "status", input.Status)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryAttendance, domainAudit.ActionUpdate).
		WithResource("member", input.MemberID).
		WithDescription(fmt.Sprintf("session %s: %s", s.ID, input.Status)))
	return nil
}

// ToggleAttendanceInput carries input for the present/absent flip.
type ToggleAttendanceInput struct {
	MemberID  string `validate:"required"`
	SessionID string `validate:"required"`
	Actor     domainAudit.Actor
}

// ExecuteToggleAttendance flips a member between present and absent for a session.
// A missing or excused record becomes present.
// POST: returns the new status
func ExecuteToggleAttendance(ctx context.Context, input ToggleAttendanceInput, deps RecordAttendanceDeps) (member.AttendanceStatus, error) {
	if err := checkInput(input); err != nil {
		return "", err
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return "", err
	}
	next := member.StatusPresent
	rec, ok := m.AttendanceFor(input.SessionID)
	if ok && rec.Status == member.StatusPresent {
		next = member.StatusAbsent
	}
	err = ExecuteRecordAttendance(ctx, RecordAttendanceInput{
		MemberID:  input.MemberID,
		SessionID: input.SessionID,
		Status:    string(next),
		Note:      rec.Note,
		Actor:     input.Actor,
	}, deps)
	if err != nil {
		return "", err
	}
	return next, nil
}

// presentCount counts members marked present for sessionID.
func presentCount(members []member.Member, sessionID string) int {
	n := 0
	for _, m := range members {
		if rec, ok := m.AttendanceFor(sessionID); ok && rec.Status == member.StatusPresent {
			n++
		}
	}
	return n
}

// syncAttendees stores the present count of s as its Attendees when they differ.
func syncAttendees(ctx context.Context, s session.Session, deps RecordAttendanceDeps) error {
	members, err := deps.MemberStore.List(ctx, memberStore.ListFilter{})
	if err != nil {
		return err
	}
	n := presentCount(members, s.ID)
	if n == s.Attendees {
		return nil
	}
	s.Attendees = n
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return fmt.Errorf("update attendees: %w", err)
	}
	return nil
}
