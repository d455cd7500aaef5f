package web

import (
	"net/http"
	"net/url"
	"strings"

	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

type attendanceView struct {
	Sessions []domainSession.Session
	Selected string
	Search   string
	Sheet    *projections.AttendanceSheet
}

// handleAttendance renders GET /attendance?session=&q=.
// Without a session parameter the most recent non-cancelled session up to today is selected.
func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	s.renderAttendance(w, r, http.StatusOK, "")
}

func (s *Server) renderAttendance(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	q := r.URL.Query()
	all, err := s.Sessions.List(r.Context(), sessionStore.ListFilter{})
	if err != nil {
		internalError(w, err)
		return
	}
	view := attendanceView{
		Sessions: selectableSessions(all),
		Selected: q.Get("session"),
		Search:   strings.TrimSpace(q.Get("q")),
	}
	if view.Selected == "" {
		view.Selected = defaultSessionID(view.Sessions, s.now().Format("2006-01-02"))
	}
	if view.Selected != "" {
		sheet, err := projections.QueryAttendanceSheet(r.Context(), projections.GetAttendanceSheetQuery{
			SessionID: view.Selected,
			Search:    view.Search,
		}, projections.GetAttendanceSheetDeps{MemberStore: s.Members, SessionStore: s.Sessions})
		switch {
		case err == nil:
			view.Sheet = &sheet
		case isNotFound(err):
			status, errMsg = http.StatusNotFound, "Séance introuvable"
		default:
			internalError(w, err)
			return
		}
	}
	p := newPage(r, "Présences", view)
	p.Error = errMsg
	renderTemplate(w, status, "attendance.html", p)
}

// selectableSessions drops cancelled sessions, newest first.
func selectableSessions(all []domainSession.Session) []domainSession.Session {
	out := make([]domainSession.Session, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status != domainSession.StatusCancelled {
			out = append(out, all[i])
		}
	}
	return out
}

// defaultSessionID picks the newest session dated today or earlier, else the oldest upcoming.
// PRE: sessions are ordered newest first
func defaultSessionID(sessions []domainSession.Session, today string) string {
	for _, s := range sessions {
		if s.Date <= today {
			return s.ID
		}
	}
	if len(sessions) > 0 {
		return sessions[len(sessions)-1].ID
	}
	return ""
}

// handleToggleAttendance handles POST /attendance/toggle (MemberID, SessionID).
func (s *Server) handleToggleAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sessionID := r.FormValue("SessionID")
	_, err := orchestrators.ExecuteToggleAttendance(r.Context(), orchestrators.ToggleAttendanceInput{
		MemberID:  r.FormValue("MemberID"),
		SessionID: sessionID,
		Actor:     actor(r),
	}, s.attendanceDeps())
	s.afterAttendanceChange(w, r, err, sessionID)
}

// handleRecordAttendance handles POST /attendance/record (MemberID, SessionID, Status, Note).
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sessionID := r.FormValue("SessionID")
	err := orchestrators.ExecuteRecordAttendance(r.Context(), orchestrators.RecordAttendanceInput{
		MemberID:  r.FormValue("MemberID"),
		SessionID: sessionID,
		Status:    r.FormValue("Status"),
		Note:      strings.TrimSpace(r.FormValue("Note")),
		Actor:     actor(r),
	}, s.attendanceDeps())
	s.afterAttendanceChange(w, r, err, sessionID)
}

func (s *Server) afterAttendanceChange(w http.ResponseWriter, r *http.Request, err error, sessionID string) {
	back := url.Values{"session": {sessionID}}
	if search := r.FormValue("q"); search != "" {
		back.Set("q", search)
	}
	if err == nil {
		back.Set("flash", "attendance_saved")
		http.Redirect(w, r, "/attendance?"+back.Encode(), http.StatusSeeOther)
		return
	}
	if status, msg, ok := formFailure(err); ok {
		r.URL.RawQuery = back.Encode()
		s.renderAttendance(w, r, status, msg)
		return
	}
	internalError(w, err)
}

func (s *Server) attendanceDeps() orchestrators.RecordAttendanceDeps {
	return orchestrators.RecordAttendanceDeps{
		MemberStore:  s.Members,
		SessionStore: s.Sessions,
		AuditStore:   s.Audit,
	}
}
