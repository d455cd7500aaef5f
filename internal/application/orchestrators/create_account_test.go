package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

type memAccountStore struct {
	byEmail map[string]account.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{byEmail: make(map[string]account.Account)}
}

// GetByID scans for the account with id.
// PRE: none
// POST: returns the account or an error wrapping storage.ErrNotFound
func (s *memAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	for _, a := range s.byEmail {
		if a.User.ID == id {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
}

// GetByEmail returns the account for email.
// PRE: none
// POST: returns the account or an error wrapping storage.ErrNotFound
func (s *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := s.byEmail[email]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", email, storage.ErrNotFound)
	}
	return a, nil
}

// Save stores a keyed by email.
// PRE: none
// POST: byEmail[a.User.Email] == a
func (s *memAccountStore) Save(_ context.Context, a account.Account) error {
	s.byEmail[a.User.Email] = a
	return nil
}

const testPassword = "correct horse battery"

func TestCreateAccount(t *testing.T) {
	store := newMemAccountStore()
	audit := &recordingAuditStore{}
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	deps := AccountDeps{AccountStore: store, AuditStore: audit, GenerateID: fixedID("u9"), Now: func() time.Time { return created }}

	u, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
		Email:    "Pasteur@Communaute.fr",
		Name:     "Pasteur Martin",
		Password: testPassword,
		Role:     account.RolePermanent,
		Actor:    testActor,
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "pasteur@communaute.fr" || u.ID != "u9" {
		t.Errorf("user = %+v", u)
	}
	if !u.HasPermission(account.Discipleship) || u.HasPermission(account.ViewStatistics) {
		t.Errorf("permanent permissions = %v", u.EnabledCapabilities())
	}
	acct := store.byEmail["pasteur@communaute.fr"]
	if acct.CheckPassword(testPassword) != nil || !acct.CreatedAt.Equal(created) {
		t.Errorf("stored account = %+v", acct)
	}
	if len(audit.events) != 1 {
		t.Errorf("audit events = %d, want 1", len(audit.events))
	}

	_, err = ExecuteCreateAccount(context.Background(), CreateAccountInput{
		Email: "pasteur@communaute.fr", Name: "Doublon", Password: testPassword, Role: account.RoleStandard,
	}, deps)
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateAccountInput
	}{
		{"short password", CreateAccountInput{Email: "a@b.fr", Name: "A", Password: "short", Role: account.RoleAdmin}},
		{"bad email", CreateAccountInput{Email: "nobody", Name: "A", Password: testPassword, Role: account.RoleAdmin}},
		{"unknown role", CreateAccountInput{Email: "a@b.fr", Name: "A", Password: testPassword, Role: "coach"}},
		{"missing name", CreateAccountInput{Email: "a@b.fr", Password: testPassword, Role: account.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemAccountStore()
			_, err := ExecuteCreateAccount(context.Background(), tt.input, AccountDeps{AccountStore: store})
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if len(store.byEmail) != 0 {
				t.Error("invalid account saved")
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	store := newMemAccountStore()
	acct := account.Account{User: account.User{ID: "u1", Email: "a@b.fr", Name: "A", Role: account.RoleAdmin}, FailedLogins: 3}
	if err := acct.SetPassword(testPassword); err != nil {
		t.Fatal(err)
	}
	store.Save(context.Background(), acct)
	deps := AccountDeps{AccountStore: store}
	ctx := context.Background()

	err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: "wrong password!", NewPassword: "another long secret"}, deps)
	if !errors.Is(err, ErrCurrentPasswordWrong) {
		t.Errorf("wrong current: err = %v", err)
	}
	err = ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: testPassword, NewPassword: testPassword}, deps)
	if !errors.Is(err, ErrNewPasswordSame) {
		t.Errorf("same password: err = %v", err)
	}
	err = ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: "u1", CurrentPassword: testPassword, NewPassword: "another long secret"}, deps)
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	got := store.byEmail["a@b.fr"]
	if got.CheckPassword("another long secret") != nil || got.FailedLogins != 0 {
		t.Errorf("account after change = %+v", got)
	}
}

func TestSeedAccounts_Idempotent(t *testing.T) {
	store := newMemAccountStore()
	audit := &recordingAuditStore{}
	deps := AccountDeps{AccountStore: store, AuditStore: audit}
	input := SeedAccountsInput{AdminEmail: "responsable@communaute.fr", AdminPassword: testPassword, DemoPassword: "demo password 2024"}

	n, err := ExecuteSeedAccounts(context.Background(), input, deps)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if n != 4 || len(store.byEmail) != 4 {
		t.Errorf("created = %d, stored = %d, want 4", n, len(store.byEmail))
	}
	if store.byEmail["membre@communaute.fr"].User.Role != account.RoleStandard {
		t.Errorf("demo member role = %q", store.byEmail["membre@communaute.fr"].User.Role)
	}

	n, err = ExecuteSeedAccounts(context.Background(), input, deps)
	if err != nil || n != 0 {
		t.Errorf("second seed = %d, %v; want 0, nil", n, err)
	}
	if len(audit.events) != 1 {
		t.Errorf("audit events = %d, want 1", len(audit.events))
	}
}

func TestSeedAccounts_AdminNeedsBothFields(t *testing.T) {
	_, err := ExecuteSeedAccounts(context.Background(), SeedAccountsInput{AdminEmail: "a@b.fr"}, AccountDeps{AccountStore: newMemAccountStore()})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
