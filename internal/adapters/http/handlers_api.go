package web

import (
	"net/http"
	"strconv"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	domainMember "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

type meResponse struct {
	User   account.User `json:"user"`
	Status string       `json:"status"`
}

// handleAPIMe answers GET /api/me with the signed-in user.
func (s *Server) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	state := middleware.StateFromContext(r.Context())
	u, _ := state.CurrentUser()
	if u.Permissions == nil {
		u.Permissions = []account.Permission{}
	}
	writeJSON(w, http.StatusOK, meResponse{User: u, Status: state.Status().String()})
}

// handleAPIPermission answers GET /api/permissions/{name}.
// Anonymous callers get granted=false rather than 401.
func (s *Server) handleAPIPermission(w http.ResponseWriter, r *http.Request) {
	name := account.Capability(r.PathValue("name"))
	writeJSON(w, http.StatusOK, map[string]any{
		"permission": name,
		"granted":    middleware.StateFromContext(r.Context()).HasPermission(name),
	})
}

// handleAPIAttendanceStats answers GET /api/stats/attendance.
func (s *Server) handleAPIAttendanceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QueryAttendanceStats(r.Context(), projections.GetAttendanceStatsDeps{MemberStore: s.Members})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAPIEventStats answers GET /api/stats/events.
func (s *Server) handleAPIEventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QueryEventStats(r.Context(), projections.GetEventStatsDeps{EventStore: s.Events})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAPISessionStats answers GET /api/stats/sessions.
func (s *Server) handleAPISessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QuerySessionStats(r.Context(), projections.GetSessionStatsDeps{SessionStore: s.Sessions})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAPILowAttendance answers GET /api/members/low-attendance?threshold=N.
// threshold defaults to 50 and must lie in [0, 100].
func (s *Server) handleAPILowAttendance(w http.ResponseWriter, r *http.Request) {
	threshold := projections.DefaultLowAttendanceThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "threshold must be an integer between 0 and 100"})
			return
		}
		threshold = n
	}
	members, err := s.Members.List(r.Context(), memberStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	low := projections.MembersWithLowAttendance(members, threshold)
	out := make([]projections.MemberRate, 0, len(low))
	for _, m := range low {
		out = append(out, projections.MemberRate{
			MemberID: m.ID,
			Name:     m.Name,
			Rate:     projections.MemberAttendanceRate(low, m.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAPIMemberRate answers GET /api/members/{id}/attendance-rate.
// An unknown member has rate 0.
func (s *Server) handleAPIMemberRate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var members []domainMember.Member
	m, err := s.Members.GetByID(r.Context(), id)
	switch {
	case err == nil:
		members = []domainMember.Member{m}
	case !isNotFound(err):
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"memberId": id,
		"rate":     projections.MemberAttendanceRate(members, id),
	})
}

// handleAPISessionAttendance answers GET /api/sessions/{id}/attendance.
// A session nobody attended, known or not, reports {0, 0, 0}.
func (s *Server) handleAPISessionAttendance(w http.ResponseWriter, r *http.Request) {
	members, err := s.Members.List(r.Context(), memberStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.SessionAttendanceBySessionID(members, r.PathValue("id")))
}

// handleAPIUpcomingSessions answers GET /api/sessions/upcoming.
func (s *Server) handleAPIUpcomingSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.Sessions.List(r.Context(), sessionStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSessions(projections.UpcomingSessions(all)))
}

// handleAPIRecentSessions answers GET /api/sessions/recent?limit=N.
func (s *Server) handleAPIRecentSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.Sessions.List(r.Context(), sessionStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSessions(projections.RecentSessions(all, queryLimit(r))))
}

// handleAPIUpcomingEvents answers GET /api/events/upcoming.
func (s *Server) handleAPIUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	all, err := s.Events.List(r.Context(), eventStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilEvents(projections.UpcomingEvents(all)))
}

// handleAPIRecentEvents answers GET /api/events/recent?limit=N.
func (s *Server) handleAPIRecentEvents(w http.ResponseWriter, r *http.Request) {
	all, err := s.Events.List(r.Context(), eventStore.ListFilter{})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilEvents(projections.RecentEvents(all, queryLimit(r))))
}

type addContactRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Age           int    `json:"age"`
	Profession    string `json:"profession"`
	Address       string `json:"address"`
	ContactMethod string `json:"contactMethod"`
	InterestLevel string `json:"interestLevel"`
	FollowUpDate  string `json:"followUpDate"`
	Notes         string `json:"notes"`
	ContactedBy   string `json:"contactedBy"`
	Source        string `json:"source"`
}

// handleAPIAddContact answers POST /api/events/{id}/contacts with the created contact.
func (s *Server) handleAPIAddContact(w http.ResponseWriter, r *http.Request) {
	var req addContactRequest
	if err := strictDecode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	c, err := orchestrators.ExecuteAddContactToEvent(r.Context(), orchestrators.AddContactInput{
		EventID:       r.PathValue("id"),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Age:           req.Age,
		Profession:    req.Profession,
		Address:       req.Address,
		ContactMethod: req.ContactMethod,
		InterestLevel: req.InterestLevel,
		FollowUpDate:  req.FollowUpDate,
		Notes:         req.Notes,
		ContactedBy:   req.ContactedBy,
		Source:        req.Source,
		Actor:         actor(r),
	}, s.contactDeps())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// queryLimit reads ?limit; invalid values fall back to the projection default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func nonNilSessions(s []domainSession.Session) []domainSession.Session {
	if s == nil {
		return []domainSession.Session{}
	}
	return s
}

func nonNilEvents(e []domainEvent.Event) []domainEvent.Event {
	if e == nil {
		return []domainEvent.Event{}
	}
	return e
}
