package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/fixtures"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/member"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

// SeedFixturesDeps holds the stores filled by SeedFixtures.
type SeedFixturesDeps struct {
	MemberStore interface {
		Save(ctx context.Context, m member.Member) error
		Count(ctx context.Context) (int, error)
	}
	SessionStore interface {
		Save(ctx context.Context, s session.Session) error
	}
	EventStore interface {
		Save(ctx context.Context, e event.Event) error
	}
	AuditStore AuditStore // optional
}

// SeedFixturesResult reports what was written.
type SeedFixturesResult struct {
	Skipped  bool
	Members  int
	Sessions int
	Events   int
}

// ExecuteSeedFixtures loads data into an empty database.
// Sessions are saved before members so attendance rows can reference them.
// PRE: data passed fixtures.Parse
// POST: Skipped is true when members already exist and nothing was written
func ExecuteSeedFixtures(ctx context.Context, data fixtures.Dataset, deps SeedFixturesDeps) (SeedFixturesResult, error) {
	n, err := deps.MemberStore.Count(ctx)
	if err != nil {
		return SeedFixturesResult{}, fmt.Errorf("count members: %w", err)
	}
	if n > 0 {
		slog.Info("seed_event", "event", "fixtures_skipped", "members", n)
		return SeedFixturesResult{Skipped: true}, nil
	}

	for _, s := range data.Sessions {
		if err := deps.SessionStore.Save(ctx, s); err != nil {
			return SeedFixturesResult{}, fmt.Errorf("seed session %s: %w", s.ID, err)
		}
	}
	for _, m := range data.Members {
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			return SeedFixturesResult{}, fmt.Errorf("seed member %s: %w", m.ID, err)
		}
	}
	for _, e := range data.Events {
		if err := deps.EventStore.Save(ctx, e); err != nil {
			return SeedFixturesResult{}, fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}

	res := SeedFixturesResult{Members: len(data.Members), Sessions: len(data.Sessions), Events: len(data.Events)}
	slog.Info("seed_event", "event", "fixtures_seeded", "members", res.Members, "sessions", res.Sessions, "events", res.Events)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(domainAudit.System, domainAudit.CategorySystem, domainAudit.ActionSeed).
		WithDescription(fmt.Sprintf("%d members, %d sessions, %d events", res.Members, res.Sessions, res.Events)))
	return res, nil
}
