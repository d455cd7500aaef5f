package projections

import (
	"context"
	"sort"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/listutil"
)

// Member list columns and filters accepted from the query string.
var (
	MemberListSortable = []string{"name", "rate", "joinDate"}
	MemberListFilters  = []string{"status"}
)

// GetMemberListQuery carries query parameters.
type GetMemberListQuery struct {
	List listutil.Params
}

// MemberWithRate is one row of the member roster.
type MemberWithRate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone,omitempty"`
	JoinDate  string `json:"joinDate,omitempty"`
	IsActive  bool   `json:"isActive"`
	Rate      int    `json:"rate"`
	Sessions  int    `json:"sessions"`
	LowRating bool   `json:"lowAttendance"`
}

// GetMemberListResult carries the query result.
type GetMemberListResult struct {
	Members []MemberWithRate
	Page    listutil.PageInfo
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore MemberStore
}

// QueryGetMemberList returns one page of the roster with attendance rates.
// The "status" filter accepts "active" or "inactive"; anything else is ignored.
// PRE: query.List comes from listutil.Parse
// POST: Members holds at most query.List.PerPage rows
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (GetMemberListResult, error) {
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return GetMemberListResult{}, err
	}
	members = SearchMembers(members, query.List.Search)

	status := query.List.Filters["status"]
	rows := make([]MemberWithRate, 0, len(members))
	for _, m := range members {
		if (status == "active" && !m.IsActive) || (status == "inactive" && m.IsActive) {
			continue
		}
		rate := attendanceRate(m)
		rows = append(rows, MemberWithRate{
			ID:        m.ID,
			Name:      m.Name,
			Gender:    m.Gender,
			Phone:     m.Phone,
			JoinDate:  m.JoinDate,
			IsActive:  m.IsActive,
			Rate:      rate,
			Sessions:  len(m.AttendanceHistory),
			LowRating: m.IsActive && rate < DefaultLowAttendanceThreshold,
		})
	}
	sortMemberRows(rows, query.List.Sort, query.List.Desc)

	page, info := listutil.Paginate(rows, query.List)
	return GetMemberListResult{Members: page, Page: info}, nil
}

func sortMemberRows(rows []MemberWithRate, column string, desc bool) {
	less := func(a, b MemberWithRate) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
	switch column {
	case "rate":
		less = func(a, b MemberWithRate) bool { return a.Rate < b.Rate }
	case "joinDate":
		less = func(a, b MemberWithRate) bool { return a.JoinDate < b.JoinDate }
	case "":
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
