package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// MemberWriter defines the member persistence needed by member registration.
type MemberWriter interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	List(ctx context.Context, filter memberStore.ListFilter) ([]member.Member, error)
	Save(ctx context.Context, m member.Member) error
}

// RegisterMemberInput carries input for the orchestrator.
type RegisterMemberInput struct {
	Name     string `validate:"required,max=100"`
	Gender   string `validate:"required,oneof=M F"`
	Phone    string `validate:"max=32"`
	Email    string `validate:"omitempty,email"`
	JoinDate string `validate:"omitempty,datetime=2006-01-02"`
	Actor    domainAudit.Actor
}

// MemberDeps holds dependencies for member orchestrators.
type MemberDeps struct {
	MemberStore MemberWriter
	AuditStore  AuditStore // optional
	GenerateID  func() string
	Now         func() time.Time
}

func (d MemberDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.NewString()
}

func (d MemberDeps) today() string {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	return now.Format("2006-01-02")
}

// ExecuteRegisterMember adds an active member with an empty attendance history.
// JoinDate defaults to today.
// POST: member persisted with IsActive true
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps MemberDeps) (member.Member, error) {
	if err := checkInput(input); err != nil {
		return member.Member{}, err
	}
	m := member.Member{
		ID:       deps.newID(),
		Name:     strings.TrimSpace(input.Name),
		Gender:   input.Gender,
		Phone:    strings.TrimSpace(input.Phone),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		JoinDate: input.JoinDate,
		IsActive: true,
	}
	if m.JoinDate == "" {
		m.JoinDate = deps.today()
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, invalid(err)
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_registered", "member_id", m.ID)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryMember, domainAudit.ActionCreate).
		WithResource("member", m.ID).
		WithDescription(m.Name))
	return m, nil
}

// SetMemberActiveInput carries input for deactivating or reactivating a member.
type SetMemberActiveInput struct {
	MemberID string `validate:"required"`
	Active   bool
	Actor    domainAudit.Actor
}

// ExecuteSetMemberActive toggles whether a member counts as active.
// Inactive members keep their history but drop out of low-attendance lists.
// PRE: member exists
// POST: IsActive == input.Active; setting the current value writes nothing
func ExecuteSetMemberActive(ctx context.Context, input SetMemberActiveInput, deps MemberDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return err
	}
	if m.IsActive == input.Active {
		return nil
	}
	m.IsActive = input.Active
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return err
	}

	event := "member_deactivated"
	if input.Active {
		event = "member_reactivated"
	}
	slog.Info("member_event", "event", event, "member_id", m.ID)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryMember, domainAudit.ActionUpdate).
		WithResource("member", m.ID).
		WithDescription(fmt.Sprintf("active=%t", input.Active)))
	return nil
}
