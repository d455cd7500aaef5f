package web

import (
	"net/http"
	"net/url"
	"strconv"

	auditStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/audit"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type auditView struct {
	Events     []domainAudit.Event
	Category   string
	Action     string
	ActorID    string
	ResourceID string
	From       string
	Limit      int
	Categories []domainAudit.Category
}

// handleAdminAuditTrail renders GET /admin/audit, newest first.
// PRE: caller holds the admin role
// POST: at most limit events, filtered by category, action, actor_id, resource_id and from
func (s *Server) handleAdminAuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := auditView{
		Category:   q.Get("category"),
		Action:     q.Get("action"),
		ActorID:    q.Get("actor_id"),
		ResourceID: q.Get("resource_id"),
		From:       q.Get("from"),
		Limit:      auditLimit(q),
		Categories: []domainAudit.Category{
			domainAudit.CategoryAuth, domainAudit.CategoryMember, domainAudit.CategorySession,
			domainAudit.CategoryAttendance, domainAudit.CategoryEvent, domainAudit.CategorySystem,
		},
	}

	events, err := s.Audit.List(r.Context(), view.filter(), view.Limit)
	if err != nil {
		internalError(w, err)
		return
	}
	view.Events = events
	renderTemplate(w, http.StatusOK, "admin_audit.html", newPage(r, "Journal d'audit", view))
}

func (v auditView) filter() auditStore.Filter {
	var f auditStore.Filter
	if v.Category != "" {
		cat := domainAudit.Category(v.Category)
		f.Category = &cat
	}
	if v.Action != "" {
		act := domainAudit.Action(v.Action)
		f.Action = &act
	}
	if v.ActorID != "" {
		f.ActorID = &v.ActorID
	}
	if v.ResourceID != "" {
		f.ResourceID = &v.ResourceID
	}
	if v.From != "" {
		f.FromDate = &v.From
	}
	return f
}

// auditLimit reads ?limit, falling back to the default when absent or out of range.
func auditLimit(q url.Values) int {
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= maxAuditLimit {
		return l
	}
	return defaultAuditLimit
}
