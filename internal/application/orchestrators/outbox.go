package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	emailAdapter "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/email"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

// OutboxStore persists notifications waiting for a retry.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
	ListRetryable(ctx context.Context, limit int) ([]outbox.Entry, error)
}

// Retry backoff: one minute after the first failure, doubling up to an hour.
const (
	outboxBaseDelay = time.Minute
	outboxMaxDelay  = time.Hour
	outboxBatchSize = 20
)

// emailPayload is the JSON stored in an outbox entry.
type emailPayload struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"replyTo,omitempty"`
}

// send delivers req, queueing it for a retry when the provider fails and an
// outbox is configured.
// POST: returns the provider error even when the request was queued
func (n *FollowUpNotifier) send(ctx context.Context, req emailAdapter.SendRequest) error {
	_, err := n.Sender.Send(ctx, req)
	if err != nil {
		n.enqueue(ctx, req, err)
	}
	return err
}

// enqueue stores req for the retry worker. Queueing errors are logged only.
func (n *FollowUpNotifier) enqueue(ctx context.Context, req emailAdapter.SendRequest, cause error) {
	if n.Outbox == nil {
		return
	}
	payload, err := json.Marshal(emailPayload{To: req.To, From: req.From, Subject: req.Subject, HTML: req.HTML, ReplyTo: req.ReplyTo})
	if err != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "error", err)
		return
	}
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	e := outbox.Entry{
		ID:        uuid.NewString(),
		Kind:      outbox.KindFollowUpEmail,
		Payload:   string(payload),
		Subject:   req.Subject,
		Status:    outbox.StatusPending,
		CreatedAt: now,
		LastError: cause.Error(),
	}
	if err := e.Validate(); err != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "error", err)
		return
	}
	if err := n.Outbox.Save(ctx, e); err != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "error", err)
		return
	}
	slog.Info("outbox_event", "event", "queued", "entry_id", e.ID, "subject", e.Subject)
}

// RetryOutboxDeps holds dependencies for the retry orchestrators.
type RetryOutboxDeps struct {
	OutboxStore OutboxStore
	Sender      emailAdapter.Sender
	AuditStore  AuditStore // optional
	Now         func() time.Time
}

func (d RetryOutboxDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// RetryOutboxResult counts what one pass did.
type RetryOutboxResult struct {
	Attempted int
	Sent      int
	Failed    int
}

// ExecuteRetryOutbox retries every due entry once.
// Entries still inside their backoff window are skipped.
// PRE: deps.OutboxStore and deps.Sender are non-nil
// POST: each attempted entry is saved as sent, retrying or failed
func ExecuteRetryOutbox(ctx context.Context, deps RetryOutboxDeps) (RetryOutboxResult, error) {
	entries, err := deps.OutboxStore.ListRetryable(ctx, outboxBatchSize)
	if err != nil {
		return RetryOutboxResult{}, fmt.Errorf("list outbox: %w", err)
	}
	var res RetryOutboxResult
	now := deps.now()
	for _, e := range entries {
		if !e.Due(now, outboxBaseDelay, outboxMaxDelay) {
			continue
		}
		res.Attempted++
		if attemptEntry(ctx, deps, &e, now) {
			res.Sent++
		} else {
			res.Failed++
		}
		if err := deps.OutboxStore.Save(ctx, e); err != nil {
			return res, fmt.Errorf("save outbox entry %s: %w", e.ID, err)
		}
	}
	if res.Attempted > 0 {
		slog.Info("outbox_event", "event", "retry_pass", "attempted", res.Attempted, "sent", res.Sent, "failed", res.Failed)
	}
	return res, nil
}

// attemptEntry sends e once and records the outcome on it.
func attemptEntry(ctx context.Context, deps RetryOutboxDeps, e *outbox.Entry, now time.Time) bool {
	e.MarkAttempt(now)
	var p emailPayload
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		// an unreadable payload never succeeds
		e.Attempts = e.MaxAttempts
		e.MarkFailed(fmt.Errorf("decode payload: %w", err))
		return false
	}
	result, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{To: p.To, From: p.From, Subject: p.Subject, HTML: p.HTML, ReplyTo: p.ReplyTo})
	if err != nil {
		e.MarkFailed(err)
		slog.Warn("outbox_event", "event", "retry_failed", "entry_id", e.ID, "attempt", e.Attempts, "error", err)
		return false
	}
	e.MarkSent(result.MessageID)
	slog.Info("outbox_event", "event", "retry_sent", "entry_id", e.ID, "attempt", e.Attempts)
	return true
}

// OutboxEntryInput names one entry acted on by an admin.
type OutboxEntryInput struct {
	EntryID string `validate:"required"`
	Actor   domainAudit.Actor
}

// ExecuteRetryOutboxEntry retries one entry now, ignoring its backoff.
// PRE: entry exists
// POST: returns outbox.ErrTerminal (as invalid input) for sent, failed or abandoned entries
func ExecuteRetryOutboxEntry(ctx context.Context, input OutboxEntryInput, deps RetryOutboxDeps) (outbox.Entry, error) {
	if err := checkInput(input); err != nil {
		return outbox.Entry{}, err
	}
	e, err := deps.OutboxStore.GetByID(ctx, input.EntryID)
	if err != nil {
		return outbox.Entry{}, err
	}
	if e.IsTerminal() {
		return e, invalid(outbox.ErrTerminal)
	}
	attemptEntry(ctx, deps, &e, deps.now())
	if err := deps.OutboxStore.Save(ctx, e); err != nil {
		return e, fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategorySystem, domainAudit.ActionUpdate).
		WithResource("outbox", e.ID).
		WithDescription("manual retry: "+e.Status))
	return e, nil
}

// ExecuteAbandonOutboxEntry drops one entry.
// PRE: entry exists
// POST: entry is abandoned, or outbox.ErrTerminal (as invalid input) is returned
func ExecuteAbandonOutboxEntry(ctx context.Context, input OutboxEntryInput, deps RetryOutboxDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	e, err := deps.OutboxStore.GetByID(ctx, input.EntryID)
	if err != nil {
		return err
	}
	if err := e.Abandon(); err != nil {
		return invalid(err)
	}
	if err := deps.OutboxStore.Save(ctx, e); err != nil {
		return fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	slog.Info("outbox_event", "event", "abandoned", "entry_id", e.ID)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategorySystem, domainAudit.ActionUpdate).
		WithResource("outbox", e.ID).
		WithDescription("abandoned: "+e.Subject))
	return nil
}
