package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/http/middleware"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/orchestrators"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
	domainEvent "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

type eventsView struct {
	Status    string
	Type      string
	Events    []domainEvent.Event
	Stats     projections.EventStats
	Types     map[string]string
	CanManage bool
	Form      orchestrators.CreateEventInput
}

// handleEvents renders GET /events with optional status and type filters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.renderEvents(w, r, http.StatusOK, "", orchestrators.CreateEventInput{})
}

func (s *Server) renderEvents(w http.ResponseWriter, r *http.Request, status int, errMsg string, form orchestrators.CreateEventInput) {
	q := r.URL.Query()
	all, err := s.Events.List(r.Context(), eventStore.ListFilter{})
	if err != nil {
		internalError(w, err)
		return
	}
	view := eventsView{
		Status:    q.Get("status"),
		Type:      q.Get("type"),
		Stats:     projections.ComputeEventStats(all),
		Types:     domainEvent.TypeLabels,
		CanManage: middleware.StateFromContext(r.Context()).HasPermission(account.ManageEvents),
		Form:      form,
	}
	shown := all
	if view.Status != "" {
		shown = projections.EventsByStatus(shown, view.Status)
	}
	if view.Type != "" {
		shown = projections.EventsByType(shown, view.Type)
	}
	view.Events = shown

	p := newPage(r, "Événements", view)
	p.Error = errMsg
	renderTemplate(w, status, "events.html", p)
}

// handleCreateEvent handles POST /events.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.CreateEventInput{
		Title:           strings.TrimSpace(r.FormValue("Title")),
		Type:            r.FormValue("Type"),
		Date:            r.FormValue("Date"),
		Time:            r.FormValue("Time"),
		EndTime:         r.FormValue("EndTime"),
		Location:        strings.TrimSpace(r.FormValue("Location")),
		Description:     r.FormValue("Description"),
		Organizer:       strings.TrimSpace(r.FormValue("Organizer")),
		MaxParticipants: formInt(r, "MaxParticipants"),
		Budget:          formInt(r, "Budget"),
		Materials:       formLines(r, "Materials"),
		Actor:           actor(r),
	}
	created, err := orchestrators.ExecuteCreateEvent(r.Context(), input, s.eventDeps())
	if err != nil {
		if status, msg, ok := formFailure(err); ok {
			s.renderEvents(w, r, status, msg, input)
			return
		}
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/events/"+created.ID+"?flash=event_created", http.StatusSeeOther)
}

type eventView struct {
	Event     domainEvent.Event
	Spent     int
	Confirmed int
	CanManage bool
}

// handleEvent renders GET /events/{id}.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	s.renderEvent(w, r, http.StatusOK, "")
}

func (s *Server) renderEvent(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	e, err := s.Events.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}
	view := eventView{
		Event:     e,
		Spent:     e.TotalExpenses(),
		Confirmed: e.ConfirmedParticipants(),
		CanManage: middleware.StateFromContext(r.Context()).HasPermission(account.ManageEvents),
	}
	p := newPage(r, e.Title, view)
	p.Error = errMsg
	renderTemplate(w, status, "event.html", p)
}

// handleAddContact handles POST /events/{id}/contacts.
func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.AddContactInput{
		EventID:       r.PathValue("id"),
		Name:          strings.TrimSpace(r.FormValue("Name")),
		Phone:         strings.TrimSpace(r.FormValue("Phone")),
		Email:         strings.TrimSpace(r.FormValue("Email")),
		Age:           formInt(r, "Age"),
		Profession:    strings.TrimSpace(r.FormValue("Profession")),
		Address:       strings.TrimSpace(r.FormValue("Address")),
		ContactMethod: r.FormValue("ContactMethod"),
		InterestLevel: r.FormValue("InterestLevel"),
		FollowUpDate:  r.FormValue("FollowUpDate"),
		Notes:         r.FormValue("Notes"),
		ContactedBy:   strings.TrimSpace(r.FormValue("ContactedBy")),
		Source:        strings.TrimSpace(r.FormValue("Source")),
		Actor:         actor(r),
	}
	if input.ContactedBy == "" {
		u, _ := middleware.StateFromContext(r.Context()).CurrentUser()
		input.ContactedBy = u.Name
	}
	_, err := orchestrators.ExecuteAddContactToEvent(r.Context(), input, s.contactDeps())
	s.afterEventChange(w, r, err, "contact_added")
}

// handleAddParticipant handles POST /events/{id}/participants.
func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	_, err := orchestrators.ExecuteAddParticipantToEvent(r.Context(), orchestrators.AddParticipantInput{
		EventID:   r.PathValue("id"),
		MemberID:  r.FormValue("MemberID"),
		Name:      strings.TrimSpace(r.FormValue("Name")),
		Phone:     strings.TrimSpace(r.FormValue("Phone")),
		Role:      r.FormValue("Role"),
		Confirmed: r.FormValue("Confirmed") == "on",
		Notes:     r.FormValue("Notes"),
		Actor:     actor(r),
	}, s.eventDeps())
	s.afterEventChange(w, r, err, "participant_added")
}

// handleAddExpense handles POST /events/{id}/expenses.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	_, err := orchestrators.ExecuteAddExpenseToEvent(r.Context(), orchestrators.AddExpenseInput{
		EventID:     r.PathValue("id"),
		Category:    strings.TrimSpace(r.FormValue("Category")),
		Description: r.FormValue("Description"),
		Amount:      formInt(r, "Amount"),
		Date:        r.FormValue("Date"),
		Receipt:     strings.TrimSpace(r.FormValue("Receipt")),
		Actor:       actor(r),
	}, s.eventDeps())
	s.afterEventChange(w, r, err, "expense_added")
}

// handleFollowUpStatus handles POST /events/{id}/contacts/{contactID}/status.
func (s *Server) handleFollowUpStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	_, err := orchestrators.ExecuteUpdateFollowUpStatus(r.Context(), orchestrators.UpdateFollowUpInput{
		EventID:   r.PathValue("id"),
		ContactID: r.PathValue("contactID"),
		Status:    r.FormValue("Status"),
		Actor:     actor(r),
	}, s.eventDeps())
	if errors.Is(err, domainEvent.ErrInvalidFollowUpTransition) {
		s.renderEvent(w, r, http.StatusConflict, "Ce changement de suivi n'est pas autorisé")
		return
	}
	s.afterEventChange(w, r, err, "status_updated")
}

// handleCompleteEvent handles POST /events/{id}/complete.
func (s *Server) handleCompleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	_, err := orchestrators.ExecuteCompleteEvent(r.Context(), orchestrators.CompleteEventInput{
		EventID:      r.PathValue("id"),
		Attendees:    formInt(r, "Attendees"),
		Satisfaction: formInt(r, "Satisfaction"),
		Impact:       r.FormValue("Impact"),
		Summary:      r.FormValue("Summary"),
		Actor:        actor(r),
	}, s.eventDeps())
	s.afterEventChange(w, r, err, "event_completed")
}

// afterEventChange redirects back to the event, or re-renders it with the error.
// A missing event renders as 404 there.
func (s *Server) afterEventChange(w http.ResponseWriter, r *http.Request, err error, flash string) {
	if err == nil {
		http.Redirect(w, r, "/events/"+r.PathValue("id")+"?flash="+flash, http.StatusSeeOther)
		return
	}
	if status, msg, ok := formFailure(err); ok {
		s.renderEvent(w, r, status, msg)
		return
	}
	internalError(w, err)
}

// handleSendReminders handles POST /events/reminders for the given Date, default today.
func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	date := r.FormValue("Date")
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	sent, err := orchestrators.ExecuteSendFollowUpReminders(r.Context(), orchestrators.SendFollowUpRemindersInput{Date: date},
		orchestrators.SendFollowUpRemindersDeps{EventStore: s.Events, Notifier: s.Notifier})
	switch {
	case err == nil:
		http.Redirect(w, r, "/events?flash=reminders_sent&count="+strconv.Itoa(sent), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrNotifierDisabled):
		s.renderEvents(w, r, http.StatusServiceUnavailable, "L'envoi d'e-mails n'est pas configuré", orchestrators.CreateEventInput{})
	default:
		if status, msg, ok := formFailure(err); ok {
			s.renderEvents(w, r, status, msg, orchestrators.CreateEventInput{})
			return
		}
		internalError(w, err)
	}
}

func (s *Server) eventDeps() orchestrators.EventDeps {
	return orchestrators.EventDeps{
		EventStore: s.Events,
		AuditStore: s.Audit,
		Now:        s.Now,
	}
}

func (s *Server) contactDeps() orchestrators.AddContactDeps {
	return orchestrators.AddContactDeps{EventDeps: s.eventDeps(), Notifier: s.Notifier}
}
