package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	emailAdapter "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/email"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/metrics"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	accountStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/account"
	auditStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/authsession"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/fixtures"
	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	outboxStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/outbox"
	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
)

// app holds the opened database and every store built over it.
type app struct {
	cfg      Config
	db       *sql.DB
	timed    *storage.TimedDB
	metrics  *metrics.Metrics
	members  *memberStore.SQLiteStore
	sessions *sessionStore.SQLiteStore
	events   *eventStore.SQLiteStore
	audit    *auditStore.SQLiteStore
	accounts *accountStore.SQLiteStore
	tokens   *authsession.SQLiteStore
	outbox   *outboxStore.SQLiteStore
}

// openApp opens and migrates the database, then builds the stores over a TimedDB.
// POST: caller must call close
func openApp(cfg Config) (*app, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	m := metrics.New()
	timed := storage.NewTimedDB(db, m, cfg.SlowQuery())
	return &app{
		cfg:      cfg,
		db:       db,
		timed:    timed,
		metrics:  m,
		members:  memberStore.NewSQLiteStore(timed),
		sessions: sessionStore.NewSQLiteStore(timed),
		events:   eventStore.NewSQLiteStore(timed),
		audit:    auditStore.NewSQLiteStore(timed),
		accounts: accountStore.NewSQLiteStore(timed),
		tokens:   authsession.NewSQLiteStore(timed),
		outbox:   outboxStore.NewSQLiteStore(timed),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("database_close_failed", "error", err)
	}
}

// seed loads the sample fixtures into an empty database and, in accounts
// mode, creates the configured accounts.
func (a *app) seed(ctx context.Context) error {
	data, err := fixtures.Sample()
	if err != nil {
		return err
	}
	if _, err := orchestrators.ExecuteSeedFixtures(ctx, data, orchestrators.SeedFixturesDeps{
		MemberStore:  a.members,
		SessionStore: a.sessions,
		EventStore:   a.events,
		AuditStore:   a.audit,
	}); err != nil {
		return fmt.Errorf("seed fixtures: %w", err)
	}
	return a.seedAccounts(ctx)
}

func (a *app) seedAccounts(ctx context.Context) error {
	if a.cfg.AuthMode != AuthModeAccounts {
		return nil
	}
	_, err := orchestrators.ExecuteSeedAccounts(ctx, orchestrators.SeedAccountsInput{
		AdminEmail:    a.cfg.AdminEmail,
		AdminPassword: a.cfg.AdminPassword,
		DemoPassword:  a.cfg.DemoPassword,
	}, orchestrators.AccountDeps{
		AccountStore: a.accounts,
		AuditStore:   a.audit,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	})
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	return nil
}

// verifier returns the credential check for the configured auth mode.
func (a *app) verifier() auth.CredentialVerifier {
	if a.cfg.AuthMode == AuthModeAccounts {
		return auth.NewAccountVerifier(a.accounts)
	}
	return auth.NewDemoVerifier()
}

// notifier builds the follow-up notifier. Without a Resend key emails go
// to the noop sender and are only logged. Failed sends land in the outbox.
func (a *app) notifier() *orchestrators.FollowUpNotifier {
	var sender emailAdapter.Sender
	if a.cfg.ResendKey != "" {
		sender = emailAdapter.NewResendSender(a.cfg.ResendKey, a.cfg.MailFrom)
		slog.Info("email_configured", "provider", "resend")
	} else {
		sender = emailAdapter.NewNoopSender()
		if a.cfg.Production() {
			slog.Warn("email_disabled", "reason", "COMPASSHUB_RESEND_KEY is not set")
		}
	}
	return &orchestrators.FollowUpNotifier{
		Sender: emailAdapter.NewMetered(sender, a.metrics),
		To:     a.cfg.FollowUpNotify,
		From:   a.cfg.MailFrom,
		Outbox: a.outbox,
		Now:    time.Now,
	}
}
