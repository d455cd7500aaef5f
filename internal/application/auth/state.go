package auth

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// Status is the lifecycle stage of an auth State.
type Status int

const (
	// StatusLoading is the initial status, before Hydrate has run.
	StatusLoading Status = iota
	StatusAnonymous
	StatusAuthenticated
)

// String returns a lowercase name for logs and JSON.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is the authentication state of one client.
//
// It is built per request from an explicit Storage and CredentialVerifier
// and must not be shared between goroutines.
type State struct {
	status   Status
	user     account.User
	storage  Storage
	verifier CredentialVerifier
}

// NewState returns a State in StatusLoading.
// PRE: storage and verifier are non-nil
func NewState(storage Storage, verifier CredentialVerifier) *State {
	return &State{status: StatusLoading, storage: storage, verifier: verifier}
}

// Hydrate loads the persisted current-user record.
// POST: status is authenticated if a readable record exists, anonymous otherwise
func (s *State) Hydrate(ctx context.Context) {
	raw, ok, err := s.storage.GetItem(ctx, CurrentUserKey)
	if err != nil {
		slog.Warn("auth_event", "event", "hydrate_failed", "error", err)
		s.setAnonymous()
		return
	}
	if !ok || raw == "" {
		s.setAnonymous()
		return
	}
	var u account.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		slog.Warn("auth_event", "event", "hydrate_discarded", "reason", "unreadable_record")
		_ = s.storage.RemoveItem(ctx, CurrentUserKey)
		s.setAnonymous()
		return
	}
	s.user = u
	s.status = StatusAuthenticated
}

// Login verifies the credentials and, on success, persists the user record.
// POST: on true, status is authenticated and the record is persisted
// INVARIANT: on false, the State is unchanged
func (s *State) Login(ctx context.Context, email, password string) bool {
	u, ok, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		slog.Error("auth_event", "event", "login_error", "email", email, "error", err)
		return false
	}
	if !ok {
		slog.Info("auth_event", "event", "login_failed", "email", email)
		return false
	}
	raw, err := json.Marshal(u)
	if err != nil {
		slog.Error("auth_event", "event", "login_error", "email", email, "error", err)
		return false
	}
	if err := s.storage.SetItem(ctx, CurrentUserKey, string(raw)); err != nil {
		slog.Error("auth_event", "event", "login_error", "email", email, "error", err)
		return false
	}
	s.user = u
	s.status = StatusAuthenticated
	slog.Info("auth_event", "event", "login_success", "email", u.Email, "role", u.Role)
	return true
}

// Logout removes the persisted record and returns to anonymous.
// POST: status is anonymous, even when the storage removal fails
func (s *State) Logout(ctx context.Context) {
	if err := s.storage.RemoveItem(ctx, CurrentUserKey); err != nil {
		slog.Warn("auth_event", "event", "logout_storage_error", "error", err)
	}
	if s.status == StatusAuthenticated {
		slog.Info("auth_event", "event", "logout", "email", s.user.Email)
	}
	s.setAnonymous()
}

// HasPermission reports whether the current user holds c enabled.
// Returns false when nobody is authenticated.
func (s *State) HasPermission(c account.Capability) bool {
	if s == nil || s.status != StatusAuthenticated {
		return false
	}
	return s.user.HasPermission(c)
}

// CurrentUser returns the authenticated user.
func (s *State) CurrentUser() (account.User, bool) {
	if s == nil || s.status != StatusAuthenticated {
		return account.User{}, false
	}
	return s.user, true
}

// IsAuthenticated reports whether a user is signed in.
func (s *State) IsAuthenticated() bool { return s != nil && s.status == StatusAuthenticated }

// IsLoading reports whether Hydrate has not completed yet.
func (s *State) IsLoading() bool { return s != nil && s.status == StatusLoading }

// Status returns the current lifecycle stage.
func (s *State) Status() Status {
	if s == nil {
		return StatusAnonymous
	}
	return s.status
}

func (s *State) setAnonymous() {
	s.user = account.User{}
	s.status = StatusAnonymous
}
