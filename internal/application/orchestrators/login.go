package orchestrators

import (
	"context"
	"errors"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// LoginRecorder counts login outcomes. *metrics.Metrics satisfies it.
type LoginRecorder interface {
	LoginAttempt(ok bool)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginDeps holds dependencies for Login and Logout.
type LoginDeps struct {
	State      *auth.State
	AuditStore AuditStore    // optional
	Recorder   LoginRecorder // optional
}

var ErrInvalidCredentials = errors.New("invalid email or password")

// ExecuteLogin signs the request's auth state in.
// PRE: deps.State is hydrated
// POST: on success the user record is persisted; on failure the state is unchanged
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (account.User, error) {
	ok := deps.State.Login(ctx, input.Email, input.Password)
	if deps.Recorder != nil {
		deps.Recorder.LoginAttempt(ok)
	}
	if !ok {
		recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(domainAudit.Actor{Email: input.Email}, domainAudit.CategoryAuth, domainAudit.ActionLogin).
			WithSeverity(domainAudit.SeverityWarning).
			WithDescription("login failed").
			WithRequest(input.IPAddress, input.UserAgent))
		return account.User{}, ErrInvalidCredentials
	}
	u, _ := deps.State.CurrentUser()
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(ActorOf(u), domainAudit.CategoryAuth, domainAudit.ActionLogin).
		WithRequest(input.IPAddress, input.UserAgent))
	return u, nil
}

// LogoutInput carries request metadata for the audit trail.
type LogoutInput struct {
	IPAddress string
	UserAgent string
}

// ExecuteLogout signs the request's auth state out.
// POST: state is anonymous
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LoginDeps) {
	u, wasIn := deps.State.CurrentUser()
	deps.State.Logout(ctx)
	if wasIn {
		recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(ActorOf(u), domainAudit.CategoryAuth, domainAudit.ActionLogout).
			WithRequest(input.IPAddress, input.UserAgent))
	}
}

// ActorOf returns the audit actor for u.
func ActorOf(u account.User) domainAudit.Actor {
	return domainAudit.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}
