package projections

import (
	"context"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	domainMember "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// DefaultLowAttendanceThreshold is the rate below which an active member is flagged.
const DefaultLowAttendanceThreshold = 50

// AttendanceStats aggregates attendance over all members.
type AttendanceStats struct {
	TotalMembers          int `json:"totalMembers"`
	ActiveMembers         int `json:"activeMembers"`
	InactiveMembers       int `json:"inactiveMembers"`
	AverageAttendanceRate int `json:"averageAttendanceRate"`
	PerfectAttendance     int `json:"perfectAttendance"`
	LowAttendance         int `json:"lowAttendance"`
}

// SessionAttendance counts present and absent members for one session.
type SessionAttendance struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Rate    int `json:"rate"`
}

// attendanceRate is the rounded share of present records in the member's history.
func attendanceRate(m domainMember.Member) int {
	return percent(m.PresentCount(), len(m.AttendanceHistory))
}

// MemberAttendanceRate returns the attendance percentage of the member with memberID.
// PRE: none
// POST: result in [0, 100]; 0 for an unknown member or an empty history
func MemberAttendanceRate(members []domainMember.Member, memberID string) int {
	for _, m := range members {
		if m.ID == memberID {
			return attendanceRate(m)
		}
	}
	return 0
}

// MembersWithLowAttendance returns active members whose rate is strictly below threshold.
// INVARIANT: result only contains active members, in input order
func MembersWithLowAttendance(members []domainMember.Member, threshold int) []domainMember.Member {
	var out []domainMember.Member
	for _, m := range members {
		if m.IsActive && attendanceRate(m) < threshold {
			out = append(out, m)
		}
	}
	return out
}

// SessionAttendanceBySessionID counts members with a present or absent record for sessionID.
// Excused records count on neither side.
// POST: Present+Absent equals the number of members with a present or absent record; Rate is 0 when both are 0
func SessionAttendanceBySessionID(members []domainMember.Member, sessionID string) SessionAttendance {
	var res SessionAttendance
	for _, m := range members {
		if hasStatus(m, sessionID, domainMember.StatusPresent) {
			res.Present++
		}
		if hasStatus(m, sessionID, domainMember.StatusAbsent) {
			res.Absent++
		}
	}
	res.Rate = percent(res.Present, res.Present+res.Absent)
	return res
}

func hasStatus(m domainMember.Member, sessionID string, status domainMember.AttendanceStatus) bool {
	for _, r := range m.AttendanceHistory {
		if r.SessionID == sessionID && r.Status == status {
			return true
		}
	}
	return false
}

// ComputeAttendanceStats aggregates attendance over members.
// The average is the rounded mean of the per-member rounded rates, 0 for no members.
func ComputeAttendanceStats(members []domainMember.Member) AttendanceStats {
	stats := AttendanceStats{TotalMembers: len(members)}
	sum := 0
	for _, m := range members {
		rate := attendanceRate(m)
		sum += rate
		if m.IsActive {
			stats.ActiveMembers++
			if rate < DefaultLowAttendanceThreshold {
				stats.LowAttendance++
			}
		}
		if rate == 100 {
			stats.PerfectAttendance++
		}
	}
	stats.InactiveMembers = stats.TotalMembers - stats.ActiveMembers
	stats.AverageAttendanceRate = roundDiv(sum, len(members))
	return stats
}

// ActiveMembersCount returns the number of active members.
func ActiveMembersCount(members []domainMember.Member) int {
	n := 0
	for _, m := range members {
		if m.IsActive {
			n++
		}
	}
	return n
}

// SearchMembers returns members whose name contains query, ignoring case.
// An empty query returns members unchanged.
func SearchMembers(members []domainMember.Member, query string) []domainMember.Member {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return members
	}
	var out []domainMember.Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

// GetAttendanceStatsDeps holds dependencies for the attendance statistics projection.
type GetAttendanceStatsDeps struct {
	MemberStore MemberStore
}

// QueryAttendanceStats loads every member and aggregates attendance.
// PRE: deps.MemberStore is non-nil
// POST: Returns the stats or the store error
func QueryAttendanceStats(ctx context.Context, deps GetAttendanceStatsDeps) (AttendanceStats, error) {
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return AttendanceStats{}, err
	}
	return ComputeAttendanceStats(members), nil
}
