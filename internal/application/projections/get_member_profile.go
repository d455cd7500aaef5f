package projections

import (
	"context"
	"sort"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	domainMember "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// MemberProfileStore is the member lookup needed by the profile projection.
type MemberProfileStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
}

// GetMemberProfileQuery carries query parameters.
type GetMemberProfileQuery struct {
	MemberID string
}

// ProfileAttendance is one attendance record joined with its session.
type ProfileAttendance struct {
	SessionID   string                        `json:"sessionId"`
	SessionDate string                        `json:"sessionDate"`
	Theme       string                        `json:"theme,omitempty"`
	Speaker     string                        `json:"speaker,omitempty"`
	Status      domainMember.AttendanceStatus `json:"status"`
	Note        string                        `json:"note,omitempty"`
}

// GetMemberProfileResult carries the query result.
type GetMemberProfileResult struct {
	Member  domainMember.Member `json:"member"`
	Rate    int                 `json:"rate"`
	Present int                 `json:"present"`
	Absent  int                 `json:"absent"`
	Excused int                 `json:"excused"`
	History []ProfileAttendance `json:"history"`
}

// GetMemberProfileDeps holds dependencies for GetMemberProfile.
type GetMemberProfileDeps struct {
	MemberStore  MemberProfileStore
	SessionStore SessionStore
}

// QueryGetMemberProfile retrieves a member with their attendance history, newest first.
// Records whose session no longer exists keep their stored date but carry no theme.
// PRE: query.MemberID is non-empty
// POST: Returns an error wrapping storage.ErrNotFound for an unknown member
func QueryGetMemberProfile(ctx context.Context, query GetMemberProfileQuery, deps GetMemberProfileDeps) (GetMemberProfileResult, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return GetMemberProfileResult{}, err
	}
	sessions, err := deps.SessionStore.List(ctx, session.ListFilter{})
	if err != nil {
		return GetMemberProfileResult{}, err
	}
	themes := make(map[string][2]string, len(sessions))
	for _, s := range sessions {
		themes[s.ID] = [2]string{s.Theme, s.Speaker}
	}

	result := GetMemberProfileResult{Member: m, Rate: attendanceRate(m)}
	for _, r := range m.AttendanceHistory {
		switch r.Status {
		case domainMember.StatusPresent:
			result.Present++
		case domainMember.StatusAbsent:
			result.Absent++
		case domainMember.StatusExcused:
			result.Excused++
		}
		info := themes[r.SessionID]
		result.History = append(result.History, ProfileAttendance{
			SessionID:   r.SessionID,
			SessionDate: r.SessionDate,
			Theme:       info[0],
			Speaker:     info[1],
			Status:      r.Status,
			Note:        r.Note,
		})
	}
	sort.SliceStable(result.History, func(i, j int) bool {
		return result.History[i].SessionDate > result.History[j].SessionDate
	})
	return result, nil
}
