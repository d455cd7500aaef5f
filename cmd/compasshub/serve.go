package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	web "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
)

// tokenSweepInterval is how often expired auth records are purged.
const tokenSweepInterval = time.Hour

// outboxRetryInterval is how often queued notifications are retried.
const outboxRetryInterval = time.Minute

const shutdownTimeout = 10 * time.Second

func serveCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveRun(ctx, *cfg)
		},
	}
}

// serveRun opens the database, seeds it when configured and serves until ctx ends.
func serveRun(ctx context.Context, cfg Config) error {
	csrfKey, err := web.LoadCSRFKey(cfg.CSRFKey, cfg.Production())
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.SeedFixtures {
		if err := a.seed(ctx); err != nil {
			return err
		}
	} else if err := a.seedAccounts(ctx); err != nil {
		return err
	}

	notifier := a.notifier()
	srv := &web.Server{
		Members:    a.members,
		Sessions:   a.sessions,
		Events:     a.events,
		Audit:      a.audit,
		Outbox:     a.outbox,
		StorageFor: func(token string) auth.Storage { return a.tokens.Scoped(token) },
		Verifier:   a.verifier(),
		Notifier:   notifier,
		Metrics:    a.metrics,
		DB:         a.timed,
		Now:        time.Now,
	}
	if cfg.AuthMode == AuthModeAccounts {
		srv.Accounts = a.accounts
	}

	go sweepTokens(ctx, a, tokenSweepInterval)
	go retryOutbox(ctx, orchestrators.RetryOutboxDeps{
		OutboxStore: a.outbox,
		Sender:      notifier.Sender,
		AuditStore:  a.audit,
		Now:         time.Now,
	}, outboxRetryInterval)

	handler := web.NewMux(ctx, srv, web.Options{
		CSRFKey:        csrfKey,
		Secure:         cfg.Production(),
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		SlowRequest:    cfg.SlowRequest(),
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_started",
		"version", version,
		"addr", cfg.Addr,
		"env", cfg.Env,
		"auth_mode", cfg.AuthMode,
		"schema", storage.LatestSchemaVersion(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	slog.Info("server_stopped")
	return nil
}

// sweepTokens deletes expired auth records every interval until ctx ends.
func sweepTokens(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.tokens.DeleteExpired(ctx)
			if err != nil {
				slog.Error("token_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("token_sweep", "deleted", n)
			}
		}
	}
}

// retryOutbox resends due outbox entries every interval until ctx ends.
func retryOutbox(ctx context.Context, deps orchestrators.RetryOutboxDeps, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrators.ExecuteRetryOutbox(ctx, deps); err != nil {
				slog.Error("outbox_retry_failed", "error", err)
			}
		}
	}
}
