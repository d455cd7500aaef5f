package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string `validate:"required"`
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=12"`
	Actor           domainAudit.Actor
}

var (
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
)

// ExecuteChangePassword validates the current password and stores the new one.
// PRE: account exists
// POST: hash replaced and the failed-login counter cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps AccountDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		return ErrCurrentPasswordWrong
	}
	if input.CurrentPassword == input.NewPassword {
		return ErrNewPasswordSame
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return invalid(err)
	}
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", input.AccountID)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryAuth, domainAudit.ActionUpdate).
		WithResource("account", input.AccountID).
		WithDescription("password changed"))
	return nil
}
