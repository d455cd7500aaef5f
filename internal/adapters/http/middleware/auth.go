package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookieName carries the browser token.
const SessionCookieName = "compasshub_session"

// sessionMaxAge matches the persisted record's lifetime.
const sessionMaxAge = 24 * 60 * 60

// StorageFor returns the auth storage scoped to one browser token.
type StorageFor func(token string) auth.Storage

// Session is the per-request auth context.
// NewToken is true when the browser presented no cookie. A successful login
// always moves the user to a fresh token.
type Session struct {
	Token    string
	NewToken bool
	State    *auth.State
}

// DenialRecorder counts refused permission checks.
type DenialRecorder interface {
	PermissionDenied(capability string)
}

// Auth builds an auth.State for every request and hydrates it from the token's storage.
// It does NOT block anonymous requests; use RequireAuth or RequirePermission for that.
// Static assets, /healthz and /metrics pass through without a session.
// PRE: storageFor and verifier are non-nil
func Auth(storageFor StorageFor, verifier auth.CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if stateless(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			sess := Session{}
			if cookie, err := r.Cookie(SessionCookieName); err == nil && validToken(cookie.Value) {
				sess.Token = cookie.Value
			} else {
				token, err := GenerateToken()
				if err != nil {
					slog.Error("internal_error", "error", err.Error())
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				sess.Token = token
				sess.NewToken = true
			}

			sess.State = auth.NewState(storageFor(sess.Token), verifier)
			sess.State.Hydrate(r.Context())
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth returns middleware that blocks anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !StateFromContext(r.Context()).IsAuthenticated() {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission blocks requests whose user holds none of caps.
// Anonymous requests are treated as in RequireAuth; a signed-in user without
// the capability gets 403. rec may be nil.
// PRE: len(caps) > 0
func RequirePermission(rec DenialRecorder, caps ...account.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := StateFromContext(r.Context())
			if !state.IsAuthenticated() {
				unauthenticated(w, r)
				return
			}
			for _, c := range caps {
				if state.HasPermission(c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			u, _ := state.CurrentUser()
			slog.Warn("auth_event", "event", "permission_denied", "email", u.Email, "capability", string(caps[0]), "path", r.URL.Path)
			if rec != nil {
				rec.PermissionDenied(string(caps[0]))
			}
			forbidden(w, r)
		})
	}
}

// RequireRole returns middleware that blocks users without one of the specified roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := StateFromContext(r.Context()).CurrentUser()
			if !ok {
				unauthenticated(w, r)
				return
			}
			if !roleSet[u.Role] {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stateless(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/healthz" || path == "/metrics"
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// SessionFromContext extracts the session from the request context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

// StateFromContext returns the request's auth state, or nil outside Auth.
// A nil *auth.State reports anonymous.
func StateFromContext(ctx context.Context) *auth.State {
	sess, _ := SessionFromContext(ctx)
	return sess.State
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   sessionMaxAge,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// validToken accepts only tokens shaped like GenerateToken output.
func validToken(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// GenerateToken returns a random 64-hex browser token.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
