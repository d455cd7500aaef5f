package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/listutil"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// maxImportBytes caps the CSV upload.
const maxImportBytes = 2 << 20

type membersView struct {
	List      listutil.Params
	Result    projections.GetMemberListResult
	CanManage bool
	Form      orchestrators.RegisterMemberInput
	Import    *orchestrators.ImportMembersResult
}

// handleMembers renders GET /members with search, status filter, sort and paging.
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	s.renderMembers(w, r, http.StatusOK, "", membersView{})
}

func (s *Server) renderMembers(w http.ResponseWriter, r *http.Request, status int, errMsg string, view membersView) {
	view.List = listutil.Parse(r.URL.Query(), projections.MemberListSortable, projections.MemberListFilters)
	result, err := projections.QueryGetMemberList(r.Context(), projections.GetMemberListQuery{List: view.List},
		projections.GetMemberListDeps{MemberStore: s.Members})
	if err != nil {
		internalError(w, err)
		return
	}
	view.Result = result
	view.CanManage = middleware.StateFromContext(r.Context()).HasPermission(account.ManageMembers)

	p := newPage(r, "Membres", view)
	p.Error = errMsg
	renderTemplate(w, status, "members.html", p)
}

// handleRegisterMember handles POST /members.
func (s *Server) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.RegisterMemberInput{
		Name:     strings.TrimSpace(r.FormValue("Name")),
		Gender:   r.FormValue("Gender"),
		Phone:    strings.TrimSpace(r.FormValue("Phone")),
		Email:    strings.TrimSpace(r.FormValue("Email")),
		JoinDate: r.FormValue("JoinDate"),
		Actor:    actor(r),
	}
	created, err := orchestrators.ExecuteRegisterMember(r.Context(), input, s.memberDeps())
	if err != nil {
		if status, msg, ok := formFailure(err); ok {
			s.renderMembers(w, r, status, msg, membersView{Form: input})
			return
		}
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/members/"+created.ID+"?flash=member_registered", http.StatusSeeOther)
}

// handleImportMembers handles POST /members/import with a multipart "File" field.
// Browsers get the members page with a summary; other clients get JSON.
func (s *Server) handleImportMembers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("File")
	if err != nil {
		http.Error(w, "Missing CSV file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := orchestrators.ExecuteImportMembers(r.Context(), orchestrators.ImportMembersInput{
		Reader:     file,
		DryRun:     r.FormValue("DryRun") == "on",
		UpdateMode: r.FormValue("UpdateMode") == "on",
		Actor:      actor(r),
	}, s.memberDeps())
	html := isHTMLRequest(r)
	if err != nil {
		if !errors.Is(err, orchestrators.ErrImportHeader) {
			internalError(w, err)
			return
		}
		if html {
			s.renderMembers(w, r, http.StatusBadRequest, err.Error(), membersView{})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if html {
		s.renderMembers(w, r, http.StatusOK, "", membersView{Import: &result})
		return
	}
	if result.Errors == nil {
		result.Errors = []orchestrators.ImportMembersRowError{}
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMemberProfile renders GET /members/{id}.
func (s *Server) handleMemberProfile(w http.ResponseWriter, r *http.Request) {
	s.renderMemberProfile(w, r, http.StatusOK, "")
}

type memberView struct {
	Profile   projections.GetMemberProfileResult
	CanManage bool
	LowRate   bool
}

func (s *Server) renderMemberProfile(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	profile, err := projections.QueryGetMemberProfile(r.Context(), projections.GetMemberProfileQuery{MemberID: r.PathValue("id")},
		projections.GetMemberProfileDeps{MemberStore: s.Members, SessionStore: s.Sessions})
	if err != nil {
		if isNotFound(err) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}
	view := memberView{
		Profile:   profile,
		CanManage: middleware.StateFromContext(r.Context()).HasPermission(account.ManageMembers),
		LowRate:   profile.Member.IsActive && profile.Rate < projections.DefaultLowAttendanceThreshold,
	}
	p := newPage(r, profile.Member.Name, view)
	p.Error = errMsg
	renderTemplate(w, status, "member.html", p)
}

// handleSetMemberActive handles POST /members/{id}/active with Active=true|false.
func (s *Server) handleSetMemberActive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	err := orchestrators.ExecuteSetMemberActive(r.Context(), orchestrators.SetMemberActiveInput{
		MemberID: id,
		Active:   r.FormValue("Active") == "true",
		Actor:    actor(r),
	}, s.memberDeps())
	if err == nil {
		http.Redirect(w, r, "/members/"+id+"?flash=member_updated", http.StatusSeeOther)
		return
	}
	if status, msg, ok := formFailure(err); ok {
		s.renderMemberProfile(w, r, status, msg)
		return
	}
	internalError(w, err)
}

func (s *Server) memberDeps() orchestrators.MemberDeps {
	return orchestrators.MemberDeps{
		MemberStore: s.Members,
		AuditStore:  s.Audit,
		Now:         s.Now,
	}
}

// handleStatistics renders GET /statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryStatistics(r.Context(), projections.GetStatisticsDeps{
		MemberStore:  s.Members,
		SessionStore: s.Sessions,
		EventStore:   s.Events,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, http.StatusOK, "statistics.html", newPage(r, "Statistiques", result))
}
