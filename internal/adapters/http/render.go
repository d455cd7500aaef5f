package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/listutil"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/navigation"
	domainSession "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var templateFuncs = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"add":            func(a, b int) int { return a + b },
	"sub":            func(a, b int) int { return a - b },
	"sessionStatus":  func(s string) string { return label(domainSession.StatusLabels, s) },
	"eventStatus":    func(s string) string { return label(domainEvent.StatusLabels, s) },
	"eventType":      func(s string) string { return label(domainEvent.TypeLabels, s) },
	"interest":       func(s string) string { return label(domainEvent.InterestLabels, s) },
	"followUp":       func(s string) string { return label(domainEvent.FollowUpLabels, s) },
	"followUpOptions": func() []string {
		return []string{domainEvent.FollowUpPending, domainEvent.FollowUpContacted, domainEvent.FollowUpConverted, domainEvent.FollowUpNotInterested}
	},
	"listQuery": func(p listutil.Params, page int) template.URL {
		return template.URL(p.Query(page))
	},
	"sortQuery": func(p listutil.Params, column string) template.URL {
		if p.Sort == column {
			p.Desc = !p.Desc
		} else {
			p.Sort, p.Desc = column, false
		}
		return template.URL(p.Query(1))
	},
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// pages maps a page file name to its parsed layout+page template.
var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	entries, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(entries))
	for _, path := range entries {
		name := strings.TrimPrefix(path, "templates/")
		if name == "layout.html" {
			continue
		}
		out[name] = template.Must(template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templatesFS, "templates/layout.html", path))
	}
	return out
}

// page is the data every template receives.
type page struct {
	Title     string
	User      account.User
	SignedIn  bool
	Nav       []navigation.Item
	Active    string
	CSRFField template.HTML
	Error     string
	Flash     string
	Data      any
}

// newPage fills the layout fields from the request's auth state.
func newPage(r *http.Request, title string, data any) page {
	state := middleware.StateFromContext(r.Context())
	u, ok := state.CurrentUser()
	nav := navigation.Visible(navigation.DefaultItems(), state.HasPermission, navigation.MaxBottomItems)
	return page{
		Title:     title,
		User:      u,
		SignedIn:  ok,
		Nav:       nav,
		Active:    navigation.Active(nav, r.URL.Path),
		CSRFField: csrf.TemplateField(r),
		Flash:     flashMessage(r.URL.Query()),
		Data:      data,
	}
}

// flashMessages maps the ?flash= codes set by redirects to their banner text.
var flashMessages = map[string]string{
	"password_changed":  "Mot de passe modifié",
	"session_created":   "Séance créée",
	"session_completed": "Séance clôturée",
	"session_cancelled": "Séance annulée",
	"attendance_saved":  "Présence enregistrée",
	"event_created":     "Événement créé",
	"event_completed":   "Événement clôturé",
	"contact_added":     "Contact ajouté",
	"participant_added": "Participant inscrit",
	"expense_added":     "Dépense enregistrée",
	"status_updated":    "Suivi mis à jour",
	"member_registered": "Membre inscrit",
	"member_updated":    "Membre mis à jour",
	"outbox_retried":    "Nouvel essai effectué",
	"outbox_abandoned":  "Envoi abandonné",
}

// flashMessage returns the banner for the request's flash code; unknown codes show nothing.
func flashMessage(q url.Values) string {
	code := q.Get("flash")
	if code == "reminders_sent" {
		n, _ := strconv.Atoi(q.Get("count"))
		return fmt.Sprintf("%d rappel(s) de suivi envoyé(s)", n)
	}
	return flashMessages[code]
}

// renderTemplate executes the named page into a buffer so a template failure
// never produces a half-written response.
func renderTemplate(w http.ResponseWriter, status int, name string, p page) {
	tpl, ok := pages[name]
	if !ok {
		internalError(w, fmt.Errorf("template %s not found", name))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}

// isNotFound reports whether err means a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, eventStore.ErrEventNotFound) ||
		errors.Is(err, eventStore.ErrContactNotFound)
}

// validationFields maps struct fields to the failed validator tag.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// writeAPIError maps an orchestrator or store error to a JSON response.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrators.ErrInvalidInput):
		body := map[string]any{"error": "invalid input"}
		if fields := validationFields(err); fields != nil {
			body["fields"] = fields
		} else {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, body)
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		internalError(w, err)
	}
}

// formFailure returns the status and user message for a failed form submission,
// or ok=false when the error is internal.
func formFailure(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, orchestrators.ErrInvalidInput):
		if fields := validationFields(err); fields != nil {
			names := make([]string, 0, len(fields))
			for f := range fields {
				names = append(names, f)
			}
			slices.Sort(names)
			return http.StatusBadRequest, "Champs invalides : " + strings.Join(names, ", "), true
		}
		return http.StatusBadRequest, err.Error(), true
	case isNotFound(err):
		return http.StatusNotFound, "Élément introuvable", true
	}
	return 0, "", false
}
