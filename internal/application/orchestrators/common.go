package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
)

// ErrInvalidInput is wrapped around every validation failure so callers can
// answer with a client error. The validator.ValidationErrors, when present,
// stay reachable through errors.As.
var ErrInvalidInput = errors.New("invalid input")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// checkInput runs the struct tags of input through the shared validator.
// POST: returns nil or an error wrapping ErrInvalidInput
func checkInput(input any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// invalid wraps a domain validation error as ErrInvalidInput.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// AuditStore defines the audit persistence needed by orchestrators.
type AuditStore interface {
	Save(ctx context.Context, e domainAudit.Event) error
}

// recordAudit saves e when store is set. Audit failures are logged and never
// fail the mutation that was already committed.
func recordAudit(ctx context.Context, store AuditStore, e domainAudit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "audit_save_failed", "action", e.Action, "resource_id", e.ResourceID, "error", err)
	}
}
