package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
)

type loginView struct {
	Email string
}

// handleLoginForm renders GET /login, or sends a signed-in user home.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.StateFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderTemplate(w, http.StatusOK, "login.html", newPage(r, "Connexion", loginView{}))
}

// handleLogin authenticates POST /login and sets the session cookie.
// PRE: middleware.Auth ran for this request
// POST: on success the user record lives under a newly issued token, the
// presented token holds nothing and the cookie carries the new token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("login without auth middleware"))
		return
	}

	token, err := middleware.GenerateToken()
	if err != nil {
		internalError(w, err)
		return
	}
	fresh := auth.NewState(s.StorageFor(token), s.Verifier)
	fresh.Hydrate(r.Context())

	email := strings.TrimSpace(r.FormValue("Email"))
	_, err = orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:     email,
		Password:  r.FormValue("Password"),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}, orchestrators.LoginDeps{
		State:      fresh,
		AuditStore: s.Audit,
		Recorder:   s.Metrics,
	})
	if err != nil {
		if !errors.Is(err, orchestrators.ErrInvalidCredentials) {
			internalError(w, err)
			return
		}
		p := newPage(r, "Connexion", loginView{Email: email})
		p.Error = "Email ou mot de passe incorrect"
		renderTemplate(w, http.StatusUnauthorized, "login.html", p)
		return
	}

	if !sess.NewToken {
		if err := s.StorageFor(sess.Token).RemoveItem(r.Context(), auth.CurrentUserKey); err != nil {
			slog.Warn("auth_event", "event", "token_rotation_cleanup_failed", "error", err)
		}
	}
	middleware.SetSessionCookie(w, token, s.secure)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout handles POST /logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		orchestrators.ExecuteLogout(r.Context(), orchestrators.LogoutInput{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		}, orchestrators.LoginDeps{State: sess.State, AuditStore: s.Audit})
	}
	middleware.ClearSessionCookie(w, s.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handlePasswordForm renders GET /account/password.
// Demo authentication has no stored passwords, so the page does not exist there.
func (s *Server) handlePasswordForm(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		http.NotFound(w, r)
		return
	}
	renderTemplate(w, http.StatusOK, "password.html", newPage(r, "Mot de passe", nil))
}

// handleChangePassword handles POST /account/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Form error", http.StatusBadRequest)
		return
	}
	fail := func(status int, msg string) {
		p := newPage(r, "Mot de passe", nil)
		p.Error = msg
		renderTemplate(w, status, "password.html", p)
	}
	if r.FormValue("NewPassword") != r.FormValue("ConfirmPassword") {
		fail(http.StatusBadRequest, "Les nouveaux mots de passe ne correspondent pas")
		return
	}

	who := actor(r)
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       who.ID,
		CurrentPassword: r.FormValue("CurrentPassword"),
		NewPassword:     r.FormValue("NewPassword"),
		Actor:           who,
	}, orchestrators.AccountDeps{AccountStore: s.Accounts, AuditStore: s.Audit, Now: s.Now})
	switch {
	case err == nil:
		http.Redirect(w, r, "/dashboard?flash=password_changed", http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrCurrentPasswordWrong):
		fail(http.StatusBadRequest, "Mot de passe actuel incorrect")
	case errors.Is(err, orchestrators.ErrNewPasswordSame):
		fail(http.StatusBadRequest, "Le nouveau mot de passe doit être différent")
	default:
		if status, msg, ok := formFailure(err); ok {
			fail(status, msg)
			return
		}
		internalError(w, err)
	}
}
