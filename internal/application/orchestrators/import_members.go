package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
)

// ImportMembersInput carries the CSV stream and import options.
// PRE: Reader holds a header row with at least NAME and GENDER.
// INVARIANT: existing members are never deleted and keep their ID and history.
type ImportMembersInput struct {
	Reader     io.Reader
	DryRun     bool
	UpdateMode bool
	Actor      domainAudit.Actor
}

// ImportMembersResult holds aggregate counts and per-row errors from an import run.
type ImportMembersResult struct {
	Total   int
	Created int
	Updated int
	Skipped int
	Errors  []ImportMembersRowError
	DryRun  bool
	Unknown []string
}

// ImportMembersRowError describes a problem with a single CSV row.
type ImportMembersRowError struct {
	Row     int
	Message string
}

// ErrImportHeader is returned when the CSV header lacks a required column.
var ErrImportHeader = errors.New("csv header is missing a required column")

var importColumns = map[string]bool{
	"NAME": true, "GENDER": true, "PHONE": true, "EMAIL": true, "JOINDATE": true, "ACTIVE": true,
}

// importKey identifies a member across imports: email when present, name otherwise.
func importKey(name, email string) string {
	if email != "" {
		return "e:" + strings.ToLower(email)
	}
	return "n:" + strings.ToLower(strings.TrimSpace(name))
}

// ExecuteImportMembers creates or updates members from a CSV stream.
// Rows match existing members by email, or by name when the row has no email.
// POST: with DryRun nothing is written; counts describe what would happen
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps MemberDeps) (ImportMembersResult, error) {
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportMembersResult{}, fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	var unknown []string
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(h))
		colIdx[key] = i
		if !importColumns[key] {
			unknown = append(unknown, h)
		}
	}
	for _, col := range []string{"NAME", "GENDER"} {
		if _, ok := colIdx[col]; !ok {
			return ImportMembersResult{}, fmt.Errorf("%w: %s", ErrImportHeader, col)
		}
	}
	get := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	existing, err := deps.MemberStore.List(ctx, memberStore.ListFilter{})
	if err != nil {
		return ImportMembersResult{}, err
	}
	byKey := make(map[string]member.Member, len(existing))
	for _, m := range existing {
		byKey[importKey(m.Name, m.Email)] = m
	}

	result := ImportMembersResult{DryRun: input.DryRun, Unknown: unknown}
	today := deps.today()
	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Total++

		m := member.Member{
			Name:     get(row, "NAME"),
			Gender:   strings.ToUpper(get(row, "GENDER")),
			Phone:    get(row, "PHONE"),
			Email:    strings.ToLower(get(row, "EMAIL")),
			JoinDate: get(row, "JOINDATE"),
			IsActive: true,
		}
		if raw := get(row, "ACTIVE"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: "active must be true or false"})
				continue
			}
			m.IsActive = active
		}
		if m.JoinDate != "" {
			if _, err := time.Parse("2006-01-02", m.JoinDate); err != nil {
				result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: "join date must be YYYY-MM-DD"})
				continue
			}
		}

		key := importKey(m.Name, m.Email)
		prev, exists := byKey[key]
		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}
		if exists {
			m.ID = prev.ID
			m.AttendanceHistory = prev.AttendanceHistory
			if m.JoinDate == "" {
				m.JoinDate = prev.JoinDate
			}
		} else {
			m.ID = deps.newID()
			if m.JoinDate == "" {
				m.JoinDate = today
			}
		}
		if err := m.Validate(); err != nil {
			result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		if !input.DryRun {
			if err := deps.MemberStore.Save(ctx, m); err != nil {
				slog.Error("member_event", "event", "import_save_failed", "row", rowNum, "error", err)
				result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: "save failed (see server log)"})
				continue
			}
		}
		byKey[key] = m
		if exists {
			result.Updated++
		} else {
			result.Created++
		}
	}

	slog.Info("member_event", "event", "members_imported",
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	if !input.DryRun && result.Created+result.Updated > 0 {
		recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryMember, domainAudit.ActionCreate).
			WithDescription(fmt.Sprintf("import: %d created, %d updated", result.Created, result.Updated)))
	}
	return result, nil
}
