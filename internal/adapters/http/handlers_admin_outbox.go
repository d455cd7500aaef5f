package web

import (
	"net/http"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	domainOutbox "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

const outboxPageLimit = 100

type outboxView struct {
	Status   string
	Entries  []domainOutbox.Entry
	Statuses []string
	CanRetry bool
}

// handleAdminOutbox renders GET /admin/outbox, newest first, optionally filtered by ?status.
// PRE: caller holds the admin role
func (s *Server) handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	s.renderOutbox(w, r, http.StatusOK, "")
}

func (s *Server) renderOutbox(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	view := outboxView{
		Status: r.URL.Query().Get("status"),
		Statuses: []string{
			domainOutbox.StatusPending, domainOutbox.StatusRetrying, domainOutbox.StatusSent,
			domainOutbox.StatusFailed, domainOutbox.StatusAbandoned,
		},
		CanRetry: s.Notifier != nil && s.Notifier.Sender != nil,
	}
	if s.Outbox != nil {
		entries, err := s.Outbox.List(r.Context(), view.Status, outboxPageLimit)
		if err != nil {
			internalError(w, err)
			return
		}
		view.Entries = entries
	}
	p := newPage(r, "Envois en attente", view)
	p.Error = errMsg
	renderTemplate(w, status, "admin_outbox.html", p)
}

// handleRetryOutboxEntry handles POST /admin/outbox/{id}/retry.
func (s *Server) handleRetryOutboxEntry(w http.ResponseWriter, r *http.Request) {
	if !s.outboxReady(w, r) {
		return
	}
	_, err := orchestrators.ExecuteRetryOutboxEntry(r.Context(), orchestrators.OutboxEntryInput{
		EntryID: r.PathValue("id"),
		Actor:   actor(r),
	}, s.outboxDeps())
	s.afterOutboxChange(w, r, err, "outbox_retried")
}

// handleAbandonOutboxEntry handles POST /admin/outbox/{id}/abandon.
func (s *Server) handleAbandonOutboxEntry(w http.ResponseWriter, r *http.Request) {
	if s.Outbox == nil {
		http.NotFound(w, r)
		return
	}
	err := orchestrators.ExecuteAbandonOutboxEntry(r.Context(), orchestrators.OutboxEntryInput{
		EntryID: r.PathValue("id"),
		Actor:   actor(r),
	}, s.outboxDeps())
	s.afterOutboxChange(w, r, err, "outbox_abandoned")
}

// outboxReady answers 503 when retries cannot be sent.
func (s *Server) outboxReady(w http.ResponseWriter, r *http.Request) bool {
	if s.Outbox == nil {
		http.NotFound(w, r)
		return false
	}
	if s.Notifier == nil || s.Notifier.Sender == nil {
		s.renderOutbox(w, r, http.StatusServiceUnavailable, "L'envoi d'e-mails n'est pas configuré")
		return false
	}
	return true
}

func (s *Server) afterOutboxChange(w http.ResponseWriter, r *http.Request, err error, flash string) {
	if err == nil {
		http.Redirect(w, r, "/admin/outbox?flash="+flash, http.StatusSeeOther)
		return
	}
	if status, msg, ok := formFailure(err); ok {
		s.renderOutbox(w, r, status, msg)
		return
	}
	internalError(w, err)
}

func (s *Server) outboxDeps() orchestrators.RetryOutboxDeps {
	deps := orchestrators.RetryOutboxDeps{
		OutboxStore: s.Outbox,
		AuditStore:  s.Audit,
		Now:         s.Now,
	}
	if s.Notifier != nil {
		deps.Sender = s.Notifier.Sender
	}
	return deps
}
