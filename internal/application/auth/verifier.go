package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// CredentialVerifier checks an email/password pair and returns the matching user.
// A false result with a nil error means the credentials did not match.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (account.User, bool, error)
}

// DemoSecret is the password shared by every demo user.
const DemoSecret = "password"

// DemoVerifier matches against a fixed table of users sharing one secret.
// It is meant for demonstrations and must not be enabled in production.
type DemoVerifier struct {
	Users  []account.User
	Secret string
}

// NewDemoVerifier returns a DemoVerifier over account.DemoUsers.
func NewDemoVerifier() DemoVerifier {
	return DemoVerifier{Users: account.DemoUsers(), Secret: DemoSecret}
}

// VerifyCredentials implements CredentialVerifier.
// POST: returns the user whose email matches exactly when password equals Secret
func (v DemoVerifier) VerifyCredentials(_ context.Context, email, password string) (account.User, bool, error) {
	if email == "" || password == "" || password != v.Secret {
		return account.User{}, false, nil
	}
	for _, u := range v.Users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return account.User{}, false, nil
}

// AccountStore is the account lookup used by AccountVerifier.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// AccountVerifier checks credentials against stored bcrypt hashes and
// locks an account after repeated failures.
type AccountVerifier struct {
	Store AccountStore
	Now   func() time.Time
}

// NewAccountVerifier creates an AccountVerifier using the wall clock.
func NewAccountVerifier(store AccountStore) AccountVerifier {
	return AccountVerifier{Store: store, Now: time.Now}
}

// VerifyCredentials implements CredentialVerifier.
// PRE: Store is non-nil
// POST: failed attempts are recorded; success resets the counter
// INVARIANT: a locked account is refused even with the right password
func (v AccountVerifier) VerifyCredentials(ctx context.Context, email, password string) (account.User, bool, error) {
	if email == "" || password == "" {
		return account.User{}, false, nil
	}
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	acct, err := v.Store.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return account.User{}, false, nil
	}

	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return account.User{}, false, nil
	}

	if err := acct.CheckPassword(password); err != nil {
		acct.RecordFailedLogin(now)
		if err := v.Store.Save(ctx, acct); err != nil {
			return account.User{}, false, err
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return account.User{}, false, nil
	}

	if acct.FailedLogins > 0 {
		acct.ResetFailedLogins()
		if err := v.Store.Save(ctx, acct); err != nil {
			return account.User{}, false, err
		}
	}
	return acct.User, true, nil
}
