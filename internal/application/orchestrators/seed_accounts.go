package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// SeedAccountsInput carries the credentials to seed.
// Demo users are only seeded when DemoPassword is set.
type SeedAccountsInput struct {
	AdminEmail    string `validate:"omitempty,email"`
	AdminPassword string `validate:"omitempty,min=12"`
	DemoPassword  string `validate:"omitempty,min=12"`
}

// ExecuteSeedAccounts creates the configured admin and, optionally, one account
// per demo user. It is idempotent: existing emails are skipped.
// PRE: database is migrated
// POST: returns the number of accounts created
func ExecuteSeedAccounts(ctx context.Context, input SeedAccountsInput, deps AccountDeps) (int, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	if (input.AdminEmail == "") != (input.AdminPassword == "") {
		return 0, fmt.Errorf("%w: admin email and password go together", ErrInvalidInput)
	}

	type seed struct {
		user     account.User
		password string
	}
	var seeds []seed
	if input.AdminEmail != "" {
		seeds = append(seeds, seed{
			user: account.User{
				Email:       input.AdminEmail,
				Name:        "Administrateur",
				Role:        account.RoleAdmin,
				Permissions: account.DefaultPermissions(account.RoleAdmin),
			},
			password: input.AdminPassword,
		})
	}
	if input.DemoPassword != "" {
		for _, u := range account.DemoUsers() {
			seeds = append(seeds, seed{user: u, password: input.DemoPassword})
		}
	}

	created := 0
	for _, s := range seeds {
		_, err := deps.AccountStore.GetByEmail(ctx, s.user.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, fmt.Errorf("seed account %s: %w", s.user.Email, err)
		}

		acct := account.Account{User: s.user, CreatedAt: deps.now()}
		acct.User.ID = deps.newID()
		if err := acct.SetPassword(s.password); err != nil {
			return created, fmt.Errorf("seed account %s: set password: %w", s.user.Email, err)
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return created, fmt.Errorf("seed account %s: save: %w", s.user.Email, err)
		}
		created++
		slog.Info("seed_event", "event", "account_seeded", "email", s.user.Email, "role", s.user.Role)
	}

	if created > 0 {
		slog.Info("seed_event", "event", "accounts_seeded", "created", created)
		recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(domainAudit.System, domainAudit.CategorySystem, domainAudit.ActionSeed).
			WithDescription(fmt.Sprintf("%d accounts", created)))
	}
	return created, nil
}
