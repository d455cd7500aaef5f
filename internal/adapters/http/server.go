package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/metrics"
	auditStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	domainOutbox "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

// MemberStore is the member persistence used by pages and orchestrators.
type MemberStore interface {
	orchestrators.MemberStore
	orchestrators.MemberWriter
}

// AuditStore records and lists audit events.
type AuditStore interface {
	orchestrators.AuditStore
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]domainAudit.Event, error)
}

// OutboxStore lists and updates queued notifications.
type OutboxStore interface {
	orchestrators.OutboxStore
	List(ctx context.Context, status string, limit int) ([]domainOutbox.Entry, error)
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server carries every dependency of the HTTP layer.
// Accounts is nil in demo authentication mode; Outbox, Notifier and Metrics may be nil.
type Server struct {
	Members    MemberStore
	Sessions   orchestrators.SessionStore
	Events     orchestrators.EventStore
	Accounts   orchestrators.AccountStore
	Audit      AuditStore
	Outbox     OutboxStore
	StorageFor middleware.StorageFor
	Verifier   auth.CredentialVerifier
	Notifier   *orchestrators.FollowUpNotifier
	Metrics    *metrics.Metrics
	DB         Pinger
	Now        func() time.Time

	secure bool
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Options configures the global middleware.
type Options struct {
	CSRFKey        []byte // 32 bytes
	Secure         bool   // HTTPS deployment: secure cookies, no plaintext CSRF
	TrustedOrigins []string
	AllowedOrigins []string // CORS origins for /api/
	RateLimit      int      // requests per second per IP; 0 disables
	SlowRequest    time.Duration
}

// ErrInvalidCSRFKey is returned when the configured key is not 64 hex characters.
var ErrInvalidCSRFKey = errors.New("CSRF key must be 64 hex characters (32 bytes)")

// ErrCSRFKeyRequired is returned in production when no key is configured.
var ErrCSRFKeyRequired = errors.New("CSRF key is required in production")

// LoadCSRFKey decodes a hex key, or generates a random one outside production.
func LoadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrInvalidCSRFKey
		}
		return key, nil
	}
	if production {
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("csrf_key_generated", "reason", "no key configured; forms will not survive a restart")
	return key, nil
}

// Routes registers every handler with its permission gate.
// The returned mux expects middleware.Auth to run before it.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	deny := s.Metrics

	need := func(h http.HandlerFunc, caps ...account.Capability) http.Handler {
		return middleware.RequirePermission(deny, caps...)(h)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(h)
	}

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /account/password", authed(s.handlePasswordForm))
	mux.Handle("POST /account/password", authed(s.handleChangePassword))

	mux.Handle("GET /{$}", authed(s.handleDashboard))
	mux.Handle("GET /dashboard", authed(s.handleDashboard))

	mux.Handle("GET /sessions", need(s.handleSessions, account.ManageSessions, account.ViewSessions))
	mux.Handle("GET /sessions/new", need(s.handleSessionForm, account.ManageSessions))
	mux.Handle("POST /sessions/new", need(s.handleCreateSession, account.ManageSessions))
	mux.Handle("POST /sessions/{id}/complete", need(s.handleCompleteSession, account.ManageSessions))
	mux.Handle("POST /sessions/{id}/cancel", need(s.handleCancelSession, account.ManageSessions))

	mux.Handle("GET /attendance", need(s.handleAttendance, account.ManageAttendance))
	mux.Handle("POST /attendance/toggle", need(s.handleToggleAttendance, account.ManageAttendance))
	mux.Handle("POST /attendance/record", need(s.handleRecordAttendance, account.ManageAttendance))

	mux.Handle("GET /events", need(s.handleEvents, account.ManageEvents, account.ViewEvents))
	mux.Handle("POST /events", need(s.handleCreateEvent, account.ManageEvents))
	mux.Handle("GET /events/{id}", need(s.handleEvent, account.ManageEvents, account.ViewEvents))
	mux.Handle("POST /events/{id}/contacts", need(s.handleAddContact, account.ManageEvents))
	mux.Handle("POST /events/{id}/participants", need(s.handleAddParticipant, account.ManageEvents))
	mux.Handle("POST /events/{id}/expenses", need(s.handleAddExpense, account.ManageEvents))
	mux.Handle("POST /events/{id}/contacts/{contactID}/status", need(s.handleFollowUpStatus, account.ManageEvents))
	mux.Handle("POST /events/{id}/complete", need(s.handleCompleteEvent, account.ManageEvents))
	mux.Handle("POST /events/reminders", need(s.handleSendReminders, account.ManageEvents))

	mux.Handle("GET /statistics", need(s.handleStatistics, account.ViewStatistics))

	mux.Handle("GET /members", need(s.handleMembers, account.ManageMembers, account.ManageAttendance))
	mux.Handle("POST /members", need(s.handleRegisterMember, account.ManageMembers))
	mux.Handle("POST /members/import", need(s.handleImportMembers, account.ManageMembers))
	mux.Handle("GET /members/{id}", need(s.handleMemberProfile, account.ManageMembers, account.ManageAttendance))
	mux.Handle("POST /members/{id}/active", need(s.handleSetMemberActive, account.ManageMembers))

	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireRole(account.RoleAdmin)(h)
	}
	mux.Handle("GET /admin/audit", admin(s.handleAdminAuditTrail))
	mux.Handle("GET /admin/outbox", admin(s.handleAdminOutbox))
	mux.Handle("POST /admin/outbox/{id}/retry", admin(s.handleRetryOutboxEntry))
	mux.Handle("POST /admin/outbox/{id}/abandon", admin(s.handleAbandonOutboxEntry))

	mux.Handle("GET /api/me", authed(s.handleAPIMe))
	mux.HandleFunc("GET /api/permissions/{name}", s.handleAPIPermission)
	mux.Handle("GET /api/stats/attendance", need(s.handleAPIAttendanceStats, account.ViewStatistics))
	mux.Handle("GET /api/stats/events", need(s.handleAPIEventStats, account.ViewStatistics))
	mux.Handle("GET /api/stats/sessions", need(s.handleAPISessionStats, account.ViewStatistics))
	mux.Handle("GET /api/members/low-attendance", need(s.handleAPILowAttendance, account.ViewStatistics))
	mux.Handle("GET /api/members/{id}/attendance-rate", need(s.handleAPIMemberRate, account.ViewStatistics, account.ManageAttendance))
	mux.Handle("GET /api/sessions/upcoming", need(s.handleAPIUpcomingSessions, account.ManageSessions, account.ViewSessions))
	mux.Handle("GET /api/sessions/recent", need(s.handleAPIRecentSessions, account.ManageSessions, account.ViewSessions))
	mux.Handle("GET /api/sessions/{id}/attendance", need(s.handleAPISessionAttendance, account.ViewStatistics, account.ManageAttendance))
	mux.Handle("GET /api/events/upcoming", need(s.handleAPIUpcomingEvents, account.ManageEvents, account.ViewEvents))
	mux.Handle("GET /api/events/recent", need(s.handleAPIRecentEvents, account.ManageEvents, account.ViewEvents))
	mux.Handle("POST /api/events/{id}/contacts", need(s.handleAPIAddContact, account.ManageEvents))

	return mux
}

// NewMux wires the routes behind the global middleware.
// Request flow: SecurityHeaders, CORS, RateLimit, CSRF, Auth, Timing, mux.
// Throttled requests never reach the auth storage.
// The rate limiter's sweeper stops when ctx is cancelled.
func NewMux(ctx context.Context, s *Server, opts Options) http.Handler {
	s.secure = opts.Secure
	mws := []func(http.Handler) http.Handler{
		middleware.Timing(s.Metrics, opts.SlowRequest),
		middleware.Auth(s.StorageFor, s.Verifier),
		middleware.CSRF(opts.CSRFKey, opts.Secure, opts.TrustedOrigins),
	}
	if opts.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewRateLimiter(ctx, opts.RateLimit, time.Second)))
	}
	mws = append(mws,
		middleware.CORS(opts.AllowedOrigins),
		middleware.SecurityHeaders,
	)
	return middleware.Chain(s.Routes(), mws...)
}

// handleHealth answers GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			slog.Error("health_check_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor returns the audit identity of the signed-in user.
func actor(r *http.Request) domainAudit.Actor {
	u, _ := middleware.StateFromContext(r.Context()).CurrentUser()
	return orchestrators.ActorOf(u)
}
