package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// AccountStore defines the account persistence needed by account orchestrators.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string `validate:"required,email,max=254"`
	Name     string `validate:"required,max=100"`
	Password string `validate:"required,min=12"`
	Role     string `validate:"required,oneof=admin permanent standard"`
	Actor    domainAudit.Actor
}

// AccountDeps holds dependencies for account orchestrators.
type AccountDeps struct {
	AccountStore AccountStore
	AuditStore   AuditStore // optional
	GenerateID   func() string
	Now          func() time.Time
}

func (d AccountDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.NewString()
}

func (d AccountDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount creates an account holding the role's default permissions.
// PRE: valid email, password >= 12 chars, valid role
// POST: account saved with a bcrypt hash
// INVARIANT: email is unique, compared case-insensitively
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps AccountDeps) (account.User, error) {
	if err := checkInput(input); err != nil {
		return account.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	_, err := deps.AccountStore.GetByEmail(ctx, email)
	if err == nil {
		return account.User{}, ErrEmailAlreadyExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return account.User{}, fmt.Errorf("lookup account: %w", err)
	}

	acct := account.Account{
		User: account.User{
			ID:          deps.newID(),
			Email:       email,
			Name:        strings.TrimSpace(input.Name),
			Role:        input.Role,
			Permissions: account.DefaultPermissions(input.Role),
		},
		CreatedAt: deps.now(),
	}
	if err := acct.User.Validate(); err != nil {
		return account.User{}, invalid(err)
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.User{}, invalid(err)
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.User{}, err
	}

	slog.Info("auth_event", "event", "account_created", "email", email, "role", input.Role)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryAuth, domainAudit.ActionCreate).
		WithResource("account", acct.User.ID).
		WithDescription(email+" ("+input.Role+")"))
	return acct.User, nil
}
