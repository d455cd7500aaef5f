// Package outbox holds notifications that failed to send and are waiting for a retry.
package outbox

import (
	"errors"
	"time"
)

// Entry statuses.
const (
	StatusPending   = "pending"   // queued, not yet retried
	StatusRetrying  = "retrying"  // at least one retry failed
	StatusSent      = "sent"      // delivered
	StatusFailed    = "failed"    // gave up after MaxAttempts
	StatusAbandoned = "abandoned" // dropped by an admin
)

// Kinds of queued work.
const (
	KindFollowUpEmail = "followup_email"
)

// DefaultMaxAttempts bounds retries when an entry does not set its own limit.
const DefaultMaxAttempts = 5

var (
	ErrEmptyKind    = errors.New("kind is required")
	ErrEmptyPayload = errors.New("payload is required")
	ErrTerminal     = errors.New("entry is sent, failed or abandoned")
)

// Entry is one queued notification. Payload is JSON the retry worker replays.
type Entry struct {
	ID              string
	Kind            string
	Payload         string
	Subject         string // shown in the admin list
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	MessageID       string
	LastError       string
}

// Validate checks required fields and defaults MaxAttempts.
// PRE: Entry struct is populated
// POST: Returns nil if valid; MaxAttempts is positive
func (e *Entry) Validate() error {
	if e.Kind == "" {
		return ErrEmptyKind
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// IsTerminal reports whether the entry will never be retried.
func (e Entry) IsTerminal() bool {
	return e.Status == StatusSent || e.Status == StatusFailed || e.Status == StatusAbandoned
}

// Due reports whether the entry should be retried at now.
// The wait after n attempts is base * 2^n, capped at max.
// INVARIANT: terminal entries are never due
func (e Entry) Due(now time.Time, base, max time.Duration) bool {
	if e.IsTerminal() {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(RetryDelay(e.Attempts, base, max)))
}

// RetryDelay is the backoff after attempts failed attempts.
func RetryDelay(attempts int, base, max time.Duration) time.Duration {
	if attempts > 30 {
		return max
	}
	delay := base * (1 << attempts)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// MarkAttempt records a retry at now.
// PRE: entry is not terminal
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
}

// MarkSent records a delivery.
func (e *Entry) MarkSent(messageID string) {
	e.Status = StatusSent
	e.MessageID = messageID
	e.LastError = ""
}

// MarkFailed records a failed attempt. The entry becomes failed once
// Attempts reaches MaxAttempts, otherwise it stays retryable.
func (e *Entry) MarkFailed(err error) {
	e.LastError = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
		return
	}
	e.Status = StatusRetrying
}

// Abandon drops the entry.
// POST: returns ErrTerminal when already sent, failed or abandoned
func (e *Entry) Abandon() error {
	if e.IsTerminal() {
		return ErrTerminal
	}
	e.Status = StatusAbandoned
	return nil
}
