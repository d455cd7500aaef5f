package projections

import (
	"context"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	domainMember "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// AttendanceSheetRow is one member's line on a session attendance sheet.
type AttendanceSheetRow struct {
	MemberID string                        `json:"memberId"`
	Name     string                        `json:"name"`
	Gender   string                        `json:"gender"`
	IsActive bool                          `json:"isActive"`
	Status   domainMember.AttendanceStatus `json:"status"`
	Note     string                        `json:"note,omitempty"`
	Recorded bool                          `json:"recorded"`
}

// AttendanceSheet lists every member with their status for one session.
type AttendanceSheet struct {
	Session    domainSession.Session `json:"session"`
	Rows       []AttendanceSheetRow  `json:"rows"`
	Attendance SessionAttendance     `json:"attendance"`
}

// SessionAttendanceSheet builds the sheet for s from members.
// A member without a record for the session is listed as absent with Recorded false.
// POST: len(Rows) == len(members), in input order
func SessionAttendanceSheet(members []domainMember.Member, s domainSession.Session) AttendanceSheet {
	sheet := AttendanceSheet{Session: s, Rows: make([]AttendanceSheetRow, 0, len(members))}
	for _, m := range members {
		row := AttendanceSheetRow{
			MemberID: m.ID,
			Name:     m.Name,
			Gender:   m.Gender,
			IsActive: m.IsActive,
			Status:   domainMember.StatusAbsent,
		}
		if rec, ok := m.AttendanceFor(s.ID); ok {
			row.Status = rec.Status
			row.Note = rec.Note
			row.Recorded = true
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	sheet.Attendance = SessionAttendanceBySessionID(members, s.ID)
	return sheet
}

// GetAttendanceSheetQuery carries input for the attendance sheet projection.
type GetAttendanceSheetQuery struct {
	SessionID string
	Search    string
}

// GetAttendanceSheetDeps holds dependencies for the attendance sheet projection.
type GetAttendanceSheetDeps struct {
	MemberStore  MemberStore
	SessionStore SessionStore
}

// QueryAttendanceSheet loads the session and all members, then builds the sheet.
// The search filter narrows the rows but not the attendance counts.
// PRE: query.SessionID is non-empty
// POST: Returns the sheet, or an error wrapping storage.ErrNotFound for an unknown session
func QueryAttendanceSheet(ctx context.Context, query GetAttendanceSheetQuery, deps GetAttendanceSheetDeps) (AttendanceSheet, error) {
	s, err := deps.SessionStore.GetByID(ctx, query.SessionID)
	if err != nil {
		return AttendanceSheet{}, err
	}
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return AttendanceSheet{}, err
	}
	sheet := SessionAttendanceSheet(SearchMembers(members, query.Search), s)
	sheet.Attendance = SessionAttendanceBySessionID(members, s.ID)
	return sheet, nil
}
