package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
)

// Role constants
const (
	RoleAdmin     = "admin"
	RolePermanent = "permanent"
	RoleStandard  = "standard"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RolePermanent, RoleStandard}

// Capability names a permission a user can be granted.
// Capabilities are compared by exact name; an unknown name is never granted.
type Capability string

// Known capabilities.
const (
	ManageSessions   Capability = "manage_sessions"
	ManageAttendance Capability = "manage_attendance"
	ViewStatistics   Capability = "view_statistics"
	ManageMembers    Capability = "manage_members"
	ManageEvents     Capability = "manage_events"
	Discipleship     Capability = "discipleship"
	ViewSessions     Capability = "view_sessions"
	ViewEvents       Capability = "view_events"
)

// KnownCapabilities lists every capability the console checks.
var KnownCapabilities = []Capability{
	ManageSessions, ManageAttendance, ViewStatistics, ManageMembers,
	ManageEvents, Discipleship, ViewSessions, ViewEvents,
}

// IsKnown reports whether c is one of KnownCapabilities.
func (c Capability) IsKnown() bool {
	for _, k := range KnownCapabilities {
		if k == c {
			return true
		}
	}
	return false
}

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrInvalidRole      = errors.New("role must be one of: admin, permanent, standard")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrEmptyPermission  = errors.New("permission name cannot be empty")
)

// Permission is a named, independently toggleable capability granted to a user.
type Permission struct {
	ID          string     `json:"id"`
	Name        Capability `json:"name"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
}

// User is the authenticated actor. Its JSON form is the persisted
// current-user record.
type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	Permissions []Permission `json:"permissions"`
	Avatar      string       `json:"avatar,omitempty"`
}

// HasPermission reports whether the user holds c and it is enabled.
// INVARIANT: User fields are not mutated
func (u User) HasPermission(c Capability) bool {
	for _, p := range u.Permissions {
		if p.Name == c && p.Enabled {
			return true
		}
	}
	return false
}

// EnabledCapabilities returns the names of all enabled permissions, in grant order.
func (u User) EnabledCapabilities() []Capability {
	caps := make([]Capability, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		if p.Enabled {
			caps = append(caps, p.Name)
		}
	}
	return caps
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if len(u.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if len(u.Name) > MaxNameLength {
		return errors.New("name cannot exceed 100 characters")
	}
	if !IsValidRole(u.Role) {
		return ErrInvalidRole
	}
	for _, p := range u.Permissions {
		if p.Name == "" {
			return ErrEmptyPermission
		}
	}
	return nil
}

// Account is the stored credential record for a User.
type Account struct {
	User         User
	PasswordHash string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= 12 characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < 12 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after 5 failures.
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= 5 {
		a.LockedUntil = now.Add(15 * time.Minute)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
