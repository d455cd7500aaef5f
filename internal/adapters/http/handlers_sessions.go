package web

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// handleDashboard renders GET / and GET /dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := middleware.StateFromContext(r.Context())
	result, err := projections.QueryDashboard(r.Context(), projections.GetDashboardQuery{
		Now:   s.now(),
		Allow: state.HasPermission,
	}, projections.GetDashboardDeps{
		MemberStore:  s.Members,
		SessionStore: s.Sessions,
		EventStore:   s.Events,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, http.StatusOK, "dashboard.html", newPage(r, "Accueil", result))
}

type sessionsView struct {
	Status    string
	Speaker   string
	Upcoming  []domainSession.Session
	Past      []domainSession.Session
	Stats     projections.SessionStats
	CanManage bool
}

// handleSessions renders GET /sessions with optional status and speaker filters.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.renderSessions(w, r, http.StatusOK, "")
}

func (s *Server) renderSessions(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	q := r.URL.Query()
	view := sessionsView{
		Status:    q.Get("status"),
		Speaker:   strings.TrimSpace(q.Get("speaker")),
		CanManage: middleware.StateFromContext(r.Context()).HasPermission(account.ManageSessions),
	}
	all, err := s.Sessions.List(r.Context(), sessionStore.ListFilter{})
	if err != nil {
		internalError(w, err)
		return
	}
	view.Stats = projections.ComputeSessionStats(all)

	shown := all
	if view.Status != "" {
		shown = projections.SessionsByStatus(shown, view.Status)
	}
	if view.Speaker != "" {
		shown = projections.SessionsBySpeaker(shown, view.Speaker)
	}
	view.Upcoming = projections.UpcomingSessions(shown)
	view.Past = pastSessions(shown)

	p := newPage(r, "Séances", view)
	p.Error = errMsg
	renderTemplate(w, status, "sessions.html", p)
}

// pastSessions returns completed and cancelled sessions, newest first.
func pastSessions(sessions []domainSession.Session) []domainSession.Session {
	out := make([]domainSession.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Status != domainSession.StatusUpcoming {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// handleSessionForm renders GET /sessions/new.
func (s *Server) handleSessionForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, http.StatusOK, "session_new.html", newPage(r, "Nouvelle séance", orchestrators.CreateSessionInput{}))
}

// handleCreateSession handles POST /sessions/new.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.CreateSessionInput{
		Date:        r.FormValue("Date"),
		Time:        r.FormValue("Time"),
		Duration:    formInt(r, "Duration"),
		Theme:       strings.TrimSpace(r.FormValue("Theme")),
		Speaker:     strings.TrimSpace(r.FormValue("Speaker")),
		Location:    strings.TrimSpace(r.FormValue("Location")),
		Description: r.FormValue("Description"),
		MaxCapacity: formInt(r, "MaxCapacity"),
		Materials:   formLines(r, "Materials"),
		Actor:       actor(r),
	}
	created, err := orchestrators.ExecuteCreateSession(r.Context(), input, s.sessionDeps())
	if err != nil {
		if status, msg, ok := formFailure(err); ok {
			p := newPage(r, "Nouvelle séance", input)
			p.Error = msg
			renderTemplate(w, status, "session_new.html", p)
			return
		}
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/sessions?flash=session_created#session-"+created.ID, http.StatusSeeOther)
}

// handleCompleteSession handles POST /sessions/{id}/complete.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	_, err := orchestrators.ExecuteCompleteSession(r.Context(), orchestrators.CompleteSessionInput{
		SessionID: r.PathValue("id"),
		Summary:   r.FormValue("Summary"),
		Notes:     r.FormValue("Notes"),
		HeadCount: formInt(r, "HeadCount"),
		Actor:     actor(r),
	}, s.sessionDeps())
	s.afterSessionChange(w, r, err, "session_completed")
}

// handleCancelSession handles POST /sessions/{id}/cancel.
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteCancelSession(r.Context(), orchestrators.CancelSessionInput{
		SessionID: r.PathValue("id"),
		Actor:     actor(r),
	}, s.sessionDeps())
	s.afterSessionChange(w, r, err, "session_cancelled")
}

func (s *Server) afterSessionChange(w http.ResponseWriter, r *http.Request, err error, flash string) {
	if err == nil {
		http.Redirect(w, r, "/sessions?flash="+flash, http.StatusSeeOther)
		return
	}
	if status, msg, ok := formFailure(err); ok {
		s.renderSessions(w, r, status, msg)
		return
	}
	internalError(w, err)
}

func (s *Server) sessionDeps() orchestrators.SessionDeps {
	return orchestrators.SessionDeps{
		SessionStore: s.Sessions,
		MemberStore:  s.Members,
		AuditStore:   s.Audit,
	}
}

// formInt parses an integer field; blank or malformed values are 0.
func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return n
}

// formLines splits a textarea into trimmed non-empty lines.
func formLines(r *http.Request, key string) []string {
	var out []string
	for _, line := range strings.Split(r.FormValue(key), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
