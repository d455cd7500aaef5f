package outbox

import (
	"errors"
	"testing"
	"time"
)

func TestEntry_Validate(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{name: "valid", entry: Entry{Kind: KindFollowUpEmail, Payload: "{}", CreatedAt: now}},
		{name: "no kind", entry: Entry{Payload: "{}", CreatedAt: now}, wantErr: ErrEmptyKind},
		{name: "no payload", entry: Entry{Kind: KindFollowUpEmail, CreatedAt: now}, wantErr: ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && tt.entry.MaxAttempts != DefaultMaxAttempts {
				t.Errorf("MaxAttempts = %d, want default", tt.entry.MaxAttempts)
			}
		})
	}
}

func TestEntry_RetryLifecycle(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	e := Entry{Kind: KindFollowUpEmail, Payload: "{}", Status: StatusPending, MaxAttempts: 2, CreatedAt: now}
	base, max := time.Minute, time.Hour

	if !e.Due(now, base, max) {
		t.Fatal("fresh entry should be due")
	}
	e.MarkAttempt(now)
	e.MarkFailed(errors.New("timeout"))
	if e.Status != StatusRetrying || e.LastError != "timeout" {
		t.Fatalf("after first failure: %+v", e)
	}
	if e.Due(now.Add(time.Minute), base, max) {
		t.Error("should wait 2 minutes after one attempt")
	}
	if !e.Due(now.Add(2*time.Minute), base, max) {
		t.Error("should be due after 2 minutes")
	}

	e.MarkAttempt(now.Add(2 * time.Minute))
	e.MarkFailed(errors.New("timeout"))
	if e.Status != StatusFailed || !e.IsTerminal() {
		t.Fatalf("after max attempts: %+v", e)
	}
	if e.Due(now.Add(24*time.Hour), base, max) {
		t.Error("failed entries are never due")
	}
	if err := e.Abandon(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Abandon on failed = %v", err)
	}
}

func TestEntry_MarkSentAndAbandon(t *testing.T) {
	e := Entry{Status: StatusRetrying, LastError: "boom"}
	if err := e.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if e.Status != StatusAbandoned {
		t.Errorf("status = %s", e.Status)
	}

	e = Entry{Status: StatusRetrying, LastError: "boom"}
	e.MarkSent("msg-1")
	if e.Status != StatusSent || e.MessageID != "msg-1" || e.LastError != "" {
		t.Errorf("after MarkSent: %+v", e)
	}
}

func TestRetryDelay_Capped(t *testing.T) {
	if got := RetryDelay(0, time.Minute, time.Hour); got != time.Minute {
		t.Errorf("RetryDelay(0) = %v", got)
	}
	if got := RetryDelay(10, time.Minute, time.Hour); got != time.Hour {
		t.Errorf("RetryDelay(10) = %v, want cap", got)
	}
	if got := RetryDelay(100, time.Minute, time.Hour); got != time.Hour {
		t.Errorf("RetryDelay(100) = %v, want cap", got)
	}
}
