package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	emailAdapter "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/email"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	auditStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/authsession"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/fixtures"
	memberStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/member"
	outboxStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/outbox"
	sessionStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/session"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/auth"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	domainOutbox "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
)

const (
	adminEmail     = "admin@communaute.fr"
	permanentEmail = "permanent@communaute.fr"
	membreEmail    = "membre@communaute.fr"
)

// testApp is a Server over an in-memory database seeded with the sample fixtures.
// Requests go through middleware.Auth but not CSRF.
type testApp struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	members := memberStore.NewSQLiteStore(db)
	sessions := sessionStore.NewSQLiteStore(db)
	events := eventStore.NewSQLiteStore(db)
	audits := auditStore.NewSQLiteStore(db)
	data, err := fixtures.Sample()
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	if _, err := orchestrators.ExecuteSeedFixtures(context.Background(), data, orchestrators.SeedFixturesDeps{
		MemberStore:  members,
		SessionStore: sessions,
		EventStore:   events,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tokens := authsession.NewSQLiteStore(db)
	srv := &Server{
		Members:    members,
		Sessions:   sessions,
		Events:     events,
		Audit:      audits,
		Outbox:     outboxStore.NewSQLiteStore(db),
		StorageFor: func(token string) auth.Storage { return tokens.Scoped(token) },
		Verifier:   auth.NewDemoVerifier(),
		DB:         db,
		Now:        func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) },
	}
	return &testApp{
		t:       t,
		srv:     srv,
		handler: middleware.Auth(srv.StorageFor, srv.Verifier)(srv.Routes()),
	}
}

func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (a *testApp) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, cookie)
}

func (a *testApp) postJSON(path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, cookie)
}

// login signs in with the demo password and returns the session cookie.
func (a *testApp) login(email string) *http.Cookie {
	a.t.Helper()
	rec := a.postForm("/login", url.Values{"Email": {email}, "Password": {auth.DemoSecret}}, nil)
	if rec.Code != http.StatusSeeOther {
		a.t.Fatalf("login %s: status %d, body %s", email, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	a.t.Fatalf("login %s: no session cookie", email)
	return nil
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.get("/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/login", url.Values{"Email": {adminEmail}, "Password": {"wrong"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Email ou mot de passe incorrect") {
		t.Error("bad password: error message not rendered")
	}

	cookie := app.login(adminEmail)
	rec = app.get("/dashboard", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Administrateur") {
		t.Error("dashboard does not greet the signed-in user")
	}

	rec = app.get("/login", cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("login page when signed in: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	rec = app.postForm("/logout", nil, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout: status = %d", rec.Code)
	}
	rec = app.get("/dashboard", cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("dashboard after logout: %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestLogin_IssuesFreshToken(t *testing.T) {
	app := newTestApp(t)
	planted := &http.Cookie{Name: middleware.SessionCookieName, Value: strings.Repeat("ab", 32)}

	rec := app.postForm("/login", url.Values{"Email": {adminEmail}, "Password": {auth.DemoSecret}}, planted)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: status = %d", rec.Code)
	}
	issued := sessionCookie(t, rec)
	if issued.Value == planted.Value {
		t.Fatal("login kept the token presented by the browser")
	}

	if rec := app.get("/api/me", planted); rec.Code != http.StatusUnauthorized {
		t.Errorf("presented token after login: status = %d, want 401", rec.Code)
	}
	if rec := app.get("/api/me", issued); rec.Code != http.StatusOK {
		t.Errorf("issued token: status = %d, want 200", rec.Code)
	}
}

func TestLogin_SwitchingUserDropsPreviousToken(t *testing.T) {
	app := newTestApp(t)
	first := app.login(membreEmail)

	rec := app.postForm("/login", url.Values{"Email": {adminEmail}, "Password": {auth.DemoSecret}}, first)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("second login: status = %d", rec.Code)
	}
	second := sessionCookie(t, rec)
	if second.Value == first.Value {
		t.Fatal("second login reused the first token")
	}
	if rec := app.get("/api/me", first); rec.Code != http.StatusUnauthorized {
		t.Errorf("first token still signed in: status = %d", rec.Code)
	}
	rec = app.get("/api/me", second)
	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeJSON(t, rec, &me)
	if me.User.Role != "admin" {
		t.Errorf("role = %q, want admin", me.User.Role)
	}
}

func TestRouteGating(t *testing.T) {
	app := newTestApp(t)
	cookies := map[string]*http.Cookie{
		"admin":     app.login(adminEmail),
		"permanent": app.login(permanentEmail),
		"membre":    app.login(membreEmail),
		"anonymous": nil,
	}

	tests := []struct {
		who  string
		path string
		want int
	}{
		{"anonymous", "/sessions", http.StatusSeeOther},
		{"anonymous", "/api/stats/attendance", http.StatusUnauthorized},
		{"membre", "/sessions", http.StatusOK},
		{"membre", "/events", http.StatusOK},
		{"membre", "/events/1", http.StatusOK},
		{"membre", "/sessions/new", http.StatusForbidden},
		{"membre", "/attendance", http.StatusForbidden},
		{"membre", "/statistics", http.StatusForbidden},
		{"membre", "/members", http.StatusForbidden},
		{"membre", "/api/stats/events", http.StatusForbidden},
		{"permanent", "/attendance", http.StatusOK},
		{"permanent", "/members", http.StatusOK},
		{"permanent", "/members/1", http.StatusOK},
		{"permanent", "/statistics", http.StatusForbidden},
		{"permanent", "/admin/audit", http.StatusForbidden},
		{"admin", "/statistics", http.StatusOK},
		{"admin", "/sessions/new", http.StatusOK},
		{"admin", "/members?sort=rate&dir=desc&status=active", http.StatusOK},
		{"admin", "/admin/audit", http.StatusOK},
		{"admin", "/events/404", http.StatusNotFound},
		{"admin", "/members/404", http.StatusNotFound},
		{"admin", "/account/password", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.who+" "+tt.path, func(t *testing.T) {
			rec := app.get(tt.path, cookies[tt.who])
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAPI_Stats(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.get("/api/stats/attendance", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats struct {
		TotalMembers  int `json:"totalMembers"`
		LowAttendance int `json:"lowAttendance"`
	}
	decodeJSON(t, rec, &stats)
	if stats.TotalMembers == 0 || stats.LowAttendance == 0 {
		t.Errorf("stats = %+v, want members and low attendance", stats)
	}

	rec = app.get("/api/members/low-attendance", admin)
	var low []struct {
		MemberID string `json:"memberId"`
		Rate     int    `json:"rate"`
	}
	decodeJSON(t, rec, &low)
	found := false
	for _, m := range low {
		if m.MemberID == "11" {
			found = true
			if m.Rate != 0 {
				t.Errorf("member 11 rate = %d, want 0", m.Rate)
			}
		}
	}
	if !found {
		t.Errorf("member 11 missing from low attendance: %+v", low)
	}

	rec = app.get("/api/members/low-attendance?threshold=0", admin)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("threshold 0 body = %s, want []", rec.Body.String())
	}
	if rec := app.get("/api/members/low-attendance?threshold=abc", admin); rec.Code != http.StatusBadRequest {
		t.Errorf("bad threshold status = %d", rec.Code)
	}
	rec = app.get("/api/members/404/attendance-rate", admin)
	var unknownRate struct {
		MemberID string `json:"memberId"`
		Rate     int    `json:"rate"`
	}
	decodeJSON(t, rec, &unknownRate)
	if rec.Code != http.StatusOK || unknownRate.MemberID != "404" || unknownRate.Rate != 0 {
		t.Errorf("unknown member: status %d, body %+v, want 200 with rate 0", rec.Code, unknownRate)
	}
	rec = app.get("/api/sessions/404/attendance", admin)
	var empty struct{ Present, Absent, Rate int }
	decodeJSON(t, rec, &empty)
	if rec.Code != http.StatusOK || empty.Present != 0 || empty.Absent != 0 || empty.Rate != 0 {
		t.Errorf("unknown session: status %d, body %+v, want 200 with zeros", rec.Code, empty)
	}

	rec = app.get("/api/sessions/1/attendance", admin)
	var att struct{ Present, Absent, Rate int }
	decodeJSON(t, rec, &att)
	if att.Present == 0 || att.Present+att.Absent == 0 {
		t.Errorf("session 1 attendance = %+v", att)
	}
}

func TestAPI_SessionsAndEvents(t *testing.T) {
	app := newTestApp(t)
	membre := app.login(membreEmail)

	var sessions []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, app.get("/api/sessions/upcoming", membre), &sessions)
	if len(sessions) != 3 {
		t.Errorf("upcoming sessions = %d, want 3", len(sessions))
	}
	decodeJSON(t, app.get("/api/sessions/recent?limit=2", membre), &sessions)
	if len(sessions) != 2 || sessions[0].ID != "1" {
		t.Errorf("recent sessions = %+v, want [1 2]", sessions)
	}

	var events []struct {
		ID string `json:"id"`
	}
	decodeJSON(t, app.get("/api/events/upcoming", membre), &events)
	if len(events) != 2 || events[0].ID != "3" {
		t.Errorf("upcoming events = %+v, want [3 5]", events)
	}
}

func TestAPI_MeAndPermissions(t *testing.T) {
	app := newTestApp(t)

	var perm struct {
		Permission string `json:"permission"`
		Granted    bool   `json:"granted"`
	}
	decodeJSON(t, app.get("/api/permissions/view_statistics", nil), &perm)
	if perm.Granted {
		t.Error("anonymous caller granted view_statistics")
	}

	admin := app.login(adminEmail)
	decodeJSON(t, app.get("/api/permissions/view_statistics", admin), &perm)
	if !perm.Granted {
		t.Error("admin not granted view_statistics")
	}

	var me struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Status string `json:"status"`
	}
	decodeJSON(t, app.get("/api/me", admin), &me)
	if me.User.Email != adminEmail || me.Status != "authenticated" {
		t.Errorf("me = %+v", me)
	}
}

func TestCreateSession(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	form := url.Values{
		"Date":      {"2024-03-03"},
		"Time":      {"18:30"},
		"Duration":  {"90"},
		"Theme":     {"La foi en action"},
		"Speaker":   {"Pasteur Martin"},
		"Materials": {"Bible\n\n Cahier "},
	}
	rec := app.postForm("/sessions/new", form, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/sessions?flash=session_created#session-") {
		t.Errorf("Location = %q", loc)
	}

	var upcoming []struct {
		Theme     string   `json:"theme"`
		Materials []string `json:"materials"`
	}
	decodeJSON(t, app.get("/api/sessions/upcoming", admin), &upcoming)
	if len(upcoming) != 4 {
		t.Fatalf("upcoming = %d, want 4", len(upcoming))
	}
	last := upcoming[len(upcoming)-1]
	if last.Theme != "La foi en action" || len(last.Materials) != 2 {
		t.Errorf("created session = %+v", last)
	}

	form.Set("Theme", "")
	rec = app.postForm("/sessions/new", form, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing theme: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Theme") {
		t.Error("missing theme: field not named in the error")
	}
}

func TestCompleteAndCancelSession(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.postForm("/sessions/3/complete", url.Values{"Summary": {"Belle soirée"}, "HeadCount": {"12"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("complete: status = %d", rec.Code)
	}
	rec = app.postForm("/sessions/3/cancel", nil, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cancel completed session: status = %d, want 400", rec.Code)
	}
	rec = app.postForm("/sessions/4/cancel", nil, admin)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("cancel: status = %d", rec.Code)
	}
	rec = app.postForm("/sessions/404/cancel", nil, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown: status = %d", rec.Code)
	}
}

func TestAttendance(t *testing.T) {
	app := newTestApp(t)
	permanent := app.login(permanentEmail)

	rec := app.get("/attendance?session=1&q=kouassi", permanent)
	if rec.Code != http.StatusOK {
		t.Fatalf("sheet: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Kouassi Marthe") || strings.Contains(rec.Body.String(), "Aka Carelle") {
		t.Error("search did not narrow the sheet")
	}
	if rec := app.get("/attendance?session=404", permanent); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d", rec.Code)
	}

	rec = app.postForm("/attendance/toggle", url.Values{"MemberID": {"11"}, "SessionID": {"1"}}, permanent)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "session=1") {
		t.Errorf("toggle Location = %q", loc)
	}

	var rate struct{ Rate int }
	decodeJSON(t, app.get("/api/members/11/attendance-rate", permanent), &rate)
	if rate.Rate != 25 {
		t.Errorf("rate after toggle = %d, want 25", rate.Rate)
	}

	rec = app.postForm("/attendance/record", url.Values{"MemberID": {"11"}, "SessionID": {"1"}, "Status": {"late"}}, permanent)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status value: status = %d", rec.Code)
	}
	rec = app.postForm("/attendance/record", url.Values{"MemberID": {"11"}, "SessionID": {"2"}, "Status": {"excused"}, "Note": {"Malade"}}, permanent)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("excuse: status = %d", rec.Code)
	}
}

func TestEvents_Mutations(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.postForm("/events", url.Values{
		"Title":    {"Journée portes ouvertes"},
		"Type":     {"outreach"},
		"Date":     {"2024-04-06"},
		"Location": {"Temple central"},
		"Budget":   {"10000"},
	}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	eventPath := strings.SplitN(rec.Header().Get("Location"), "?", 2)[0]

	rec = app.postForm(eventPath+"/contacts", url.Values{
		"Name": {"Awa Traoré"}, "Phone": {"0700000000"}, "ContactMethod": {"direct"}, "InterestLevel": {"high"},
	}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("contact: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = app.postForm(eventPath+"/expenses", url.Values{"Category": {"Transport"}, "Amount": {"2500"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expense: status = %d", rec.Code)
	}
	rec = app.postForm(eventPath+"/participants", url.Values{"Name": {"Ouaraga"}, "Role": {"volunteer"}, "Confirmed": {"on"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("participant: status = %d", rec.Code)
	}

	rec = app.get(eventPath, admin)
	body := rec.Body.String()
	for _, want := range []string{"Awa Traoré", "Transport", "Ouaraga"} {
		if !strings.Contains(body, want) {
			t.Errorf("event page missing %q", want)
		}
	}

	rec = app.postForm(eventPath+"/complete", url.Values{"Satisfaction": {"5"}, "Attendees": {"30"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("complete: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = app.postForm(eventPath+"/complete", url.Values{"Satisfaction": {"5"}}, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("complete twice: status = %d, want 400", rec.Code)
	}
	rec = app.postForm("/events/404/expenses", url.Values{"Category": {"Transport"}, "Amount": {"1"}}, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expense on unknown event: status = %d", rec.Code)
	}
}

func TestFollowUpStatus(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.postForm("/events/1/contacts/2/status", url.Values{"Status": {"contacted"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("pending to contacted: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = app.postForm("/events/1/contacts/3/status", url.Values{"Status": {"pending"}}, admin)
	if rec.Code != http.StatusConflict {
		t.Errorf("converted to pending: status = %d, want 409", rec.Code)
	}
	rec = app.postForm("/events/1/contacts/404/status", url.Values{"Status": {"contacted"}}, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown contact: status = %d, want 404", rec.Code)
	}
}

func TestSendReminders_NoNotifier(t *testing.T) {
	app := newTestApp(t)
	rec := app.postForm("/events/reminders", nil, app.login(adminEmail))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAPI_AddContact(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.postJSON("/api/events/3/contacts",
		`{"name":"Yao Kouamé","phone":"0102030405","contactMethod":"phone","interestLevel":"medium","followUpDate":"2024-02-20"}`, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var c struct {
		ID             string `json:"id"`
		FollowUpStatus string `json:"followUpStatus"`
	}
	decodeJSON(t, rec, &c)
	if c.ID == "" || c.FollowUpStatus != "pending" {
		t.Errorf("contact = %+v", c)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown field", "/api/events/3/contacts", `{"name":"X","nickname":"Y"}`, http.StatusBadRequest},
		{"missing phone", "/api/events/3/contacts", `{"name":"X","contactMethod":"phone","interestLevel":"low"}`, http.StatusBadRequest},
		{"unknown event", "/api/events/404/contacts", `{"name":"X","phone":"1","contactMethod":"phone","interestLevel":"low"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := app.postJSON(tt.path, tt.body, admin); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec = app.postJSON("/api/events/3/contacts", `{"name":"X","contactMethod":"phone","interestLevel":"low"}`, admin)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decodeJSON(t, rec, &verr)
	if verr.Fields["Phone"] != "required" {
		t.Errorf("fields = %v, want Phone: required", verr.Fields)
	}
}

func multipartCSV(t *testing.T, csv string, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("File", "members.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, csv)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestImportMembers(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)
	csv := "NAME,GENDER,EMAIL,CHURCH\nNouveau Membre,F,nouveau@example.com,Cocody\n,M,,\n"

	importCSV := func(fields map[string]string, accept string) *httptest.ResponseRecorder {
		body, ct := multipartCSV(t, csv, fields)
		req := httptest.NewRequest(http.MethodPost, "/members/import", body)
		req.Header.Set("Content-Type", ct)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		return app.do(req, admin)
	}

	rec := importCSV(map[string]string{"DryRun": "on"}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("dry run: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res orchestrators.ImportMembersResult
	decodeJSON(t, rec, &res)
	if !res.DryRun || res.Created != 1 || len(res.Errors) != 1 {
		t.Errorf("dry run result = %+v", res)
	}
	if len(res.Unknown) != 1 || res.Unknown[0] != "CHURCH" {
		t.Errorf("unknown columns = %v", res.Unknown)
	}

	if strings.Contains(app.get("/members?q=Nouveau", admin).Body.String(), "Nouveau Membre") {
		t.Fatal("dry run wrote a member")
	}

	rec = importCSV(nil, "text/html")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "1 créés") {
		t.Errorf("html import: status = %d", rec.Code)
	}
	if !strings.Contains(app.get("/members?q=Nouveau", admin).Body.String(), "Nouveau Membre") {
		t.Error("import did not create the member")
	}

	body, ct := multipartCSV(t, "PHONE\n0102\n", nil)
	req := httptest.NewRequest(http.MethodPost, "/members/import", body)
	req.Header.Set("Content-Type", ct)
	if rec := app.do(req, admin); rec.Code != http.StatusBadRequest {
		t.Errorf("missing header: status = %d", rec.Code)
	}
}

func TestMembers_RegisterAndDeactivate(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	rec := app.postForm("/members", url.Values{"Name": {"Koffi Aimé"}, "Gender": {"M"}, "Phone": {"0707"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register: status = %d, body %s", rec.Code, rec.Body.String())
	}
	profile := strings.SplitN(rec.Header().Get("Location"), "?", 2)[0]

	rec = app.postForm(profile+"/active", url.Values{"Active": {"false"}}, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("deactivate: status = %d", rec.Code)
	}
	if !strings.Contains(app.get(profile, admin).Body.String(), "Réactiver") {
		t.Error("profile does not offer reactivation")
	}

	rec = app.postForm("/members", url.Values{"Name": {"Sans genre"}, "Gender": {"X"}}, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad gender: status = %d", rec.Code)
	}
}

func TestAdminAudit(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)
	app.postForm("/sessions/4/cancel", nil, admin)

	rec := app.get("/admin/audit?category=auth&limit=5000", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, adminEmail) || !strings.Contains(body, "login") {
		t.Error("login event not listed")
	}
	if strings.Contains(body, "<td>session</td>") {
		t.Error("category filter not applied")
	}
	if !strings.Contains(body, `value="100"`) {
		t.Error("out of range limit not reset to the default")
	}
}

func queueEntry(t *testing.T, app *testApp, id, status string) {
	t.Helper()
	err := app.srv.Outbox.Save(context.Background(), domainOutbox.Entry{
		ID:          id,
		Kind:        domainOutbox.KindFollowUpEmail,
		Payload:     `{"to":["suivi@communaute.fr"],"subject":"Relance ` + id + `","html":"<p>x</p>"}`,
		Subject:     "Relance " + id,
		Status:      status,
		MaxAttempts: 3,
		CreatedAt:   time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("queue %s: %v", id, err)
	}
}

func TestAdminOutbox(t *testing.T) {
	app := newTestApp(t)
	queueEntry(t, app, "o1", domainOutbox.StatusPending)
	queueEntry(t, app, "o2", domainOutbox.StatusRetrying)
	queueEntry(t, app, "o3", domainOutbox.StatusSent)
	admin := app.login(adminEmail)

	rec := app.get("/admin/outbox", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Relance o1") || !strings.Contains(body, "Relance o3") {
		t.Error("queued entries not listed")
	}
	if strings.Contains(body, "/admin/outbox/o1/retry") {
		t.Error("retry offered without a configured sender")
	}

	rec = app.get("/admin/outbox?status=sent", admin)
	if strings.Contains(rec.Body.String(), "Relance o1") {
		t.Error("status filter not applied")
	}

	if rec := app.get("/admin/outbox", app.login(permanentEmail)); rec.Code != http.StatusForbidden {
		t.Errorf("permanent: status = %d, want 403", rec.Code)
	}

	rec = app.postForm("/admin/outbox/o1/retry", nil, admin)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("retry without sender: status = %d, want 503", rec.Code)
	}

	rec = app.postForm("/admin/outbox/o1/abandon", nil, admin)
	if rec.Code != http.StatusSeeOther || !strings.Contains(rec.Header().Get("Location"), "flash=outbox_abandoned") {
		t.Fatalf("abandon: status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}
	got, err := app.srv.Outbox.GetByID(context.Background(), "o1")
	if err != nil || got.Status != domainOutbox.StatusAbandoned {
		t.Errorf("o1 = %+v, %v", got, err)
	}

	rec = app.postForm("/admin/outbox/o3/abandon", nil, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("abandon sent entry: status = %d, want 400", rec.Code)
	}
	rec = app.postForm("/admin/outbox/missing/abandon", nil, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("abandon unknown entry: status = %d, want 404", rec.Code)
	}

	app.srv.Notifier = &orchestrators.FollowUpNotifier{Sender: emailAdapter.NewNoopSender(), Outbox: app.srv.Outbox}
	rec = app.postForm("/admin/outbox/o2/retry", nil, admin)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("retry: status = %d", rec.Code)
	}
	got, _ = app.srv.Outbox.GetByID(context.Background(), "o2")
	if got.Status != domainOutbox.StatusSent || got.Attempts != 1 {
		t.Errorf("o2 after retry = %+v", got)
	}
}

func TestNewMux_GlobalMiddleware(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewMux(ctx, app.srv, Options{CSRFKey: bytes.Repeat([]byte("k"), 32), RateLimit: 100})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("login page: status = %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if !strings.Contains(rec.Body.String(), `name="gorilla.csrf.Token"`) {
		t.Error("login form has no CSRF field")
	}

	form := url.Values{"Email": {adminEmail}, "Password": {auth.DemoSecret}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("login without CSRF token: status = %d, want 403", rec.Code)
	}
}

// TestNewMux_RateLimitBeforeAuth verifies throttled requests are refused before any session lookup.
func TestNewMux_RateLimitBeforeAuth(t *testing.T) {
	app := newTestApp(t)
	lookups := 0
	storageFor := app.srv.StorageFor
	app.srv.StorageFor = func(token string) auth.Storage {
		lookups++
		return storageFor(token)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewMux(ctx, app.srv, Options{CSRFKey: bytes.Repeat([]byte("k"), 32), RateLimit: 1})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	seen := lookups
	if seen == 0 {
		t.Fatal("first request did not hydrate a session")
	}

	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: status = %d, want 429", i+2, rec.Code)
		}
	}
	if lookups != seen {
		t.Errorf("throttled requests opened %d storages", lookups-seen)
	}
}

func TestLoadCSRFKey(t *testing.T) {
	if _, err := LoadCSRFKey("", true); err != ErrCSRFKeyRequired {
		t.Errorf("production without key: err = %v", err)
	}
	if _, err := LoadCSRFKey("abcd", false); err != ErrInvalidCSRFKey {
		t.Errorf("short key: err = %v", err)
	}
	key, err := LoadCSRFKey(strings.Repeat("ab", 32), true)
	if err != nil || len(key) != 32 {
		t.Errorf("valid key: %v, len %d", err, len(key))
	}
	if key, err := LoadCSRFKey("", false); err != nil || len(key) != 32 {
		t.Errorf("generated key: %v", err)
	}
}
