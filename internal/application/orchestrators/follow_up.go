package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	emailAdapter "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/email"
	eventStore "github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage/event"
	domainAudit "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

// FollowUpNotifier delivers follow-up notifications to the staff address.
// Failed sends are queued in Outbox when it is set.
type FollowUpNotifier struct {
	Sender emailAdapter.Sender
	To     string // staff address; empty disables notifications
	From   string
	Outbox OutboxStore
	Now    func() time.Time
}

// enabled reports whether notifications can be sent.
func (n *FollowUpNotifier) enabled() bool {
	return n != nil && n.Sender != nil && n.To != ""
}

var followUpTemplate = template.Must(template.New("followup").Parse(
	`<p>Nouveau contact à suivre pour <strong>{{.Event}}</strong>.</p>
<ul>
<li>Nom : {{.Contact.Name}}</li>
<li>Téléphone : {{.Contact.Phone}}</li>
<li>Intérêt : {{.Interest}}</li>
<li>Date de suivi : {{.Contact.FollowUpDate}}</li>
<li>Contacté par : {{.Contact.ContactedBy}}</li>
</ul>
{{with .Contact.Notes}}<p>{{.}}</p>{{end}}`))

// followUpRequest renders the notification for contact c met at eventTitle.
func (n *FollowUpNotifier) followUpRequest(eventTitle string, c event.Contact) (emailAdapter.SendRequest, error) {
	var body bytes.Buffer
	err := followUpTemplate.Execute(&body, map[string]any{
		"Event":    eventTitle,
		"Contact":  c,
		"Interest": event.InterestLabels[c.InterestLevel],
	})
	if err != nil {
		return emailAdapter.SendRequest{}, fmt.Errorf("render follow-up email: %w", err)
	}
	return emailAdapter.SendRequest{
		To:      []string{n.To},
		From:    n.From,
		Subject: fmt.Sprintf("Suivi à prévoir : %s (%s)", c.Name, c.FollowUpDate),
		HTML:    body.String(),
	}, nil
}

// AddContactInput carries input for recording a person met at an event.
type AddContactInput struct {
	EventID       string `validate:"required"`
	Name          string `validate:"required,max=100"`
	Phone         string `validate:"required,max=32"`
	Email         string `validate:"omitempty,email"`
	Age           int    `validate:"gte=0,lte=150"`
	Profession    string `validate:"max=100"`
	Address       string `validate:"max=200"`
	ContactMethod string `validate:"required,oneof=phone direct referral"`
	InterestLevel string `validate:"required,oneof=low medium high"`
	FollowUpDate  string `validate:"omitempty,datetime=2006-01-02"`
	Notes         string `validate:"max=2000"`
	ContactedBy   string `validate:"max=100"`
	Source        string `validate:"max=100"`
	Actor         domainAudit.Actor
}

// AddContactDeps holds dependencies for AddContactToEvent.
type AddContactDeps struct {
	EventDeps
	Notifier *FollowUpNotifier // optional
}

// ExecuteAddContactToEvent records a contact with follow-up status pending.
// When a follow-up date is set the staff address is notified; a failed
// notification is logged and does not undo the contact.
// PRE: event exists
// POST: contact appended to the event's contacts
func ExecuteAddContactToEvent(ctx context.Context, input AddContactInput, deps AddContactDeps) (event.Contact, error) {
	if err := checkInput(input); err != nil {
		return event.Contact{}, err
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Contact{}, err
	}
	c := event.Contact{
		ID:             deps.newID(),
		EventID:        e.ID,
		Name:           strings.TrimSpace(input.Name),
		Phone:          strings.TrimSpace(input.Phone),
		Email:          input.Email,
		Age:            input.Age,
		Profession:     input.Profession,
		Address:        input.Address,
		ContactMethod:  input.ContactMethod,
		InterestLevel:  input.InterestLevel,
		FollowUpDate:   input.FollowUpDate,
		FollowUpStatus: event.FollowUpPending,
		Notes:          input.Notes,
		ContactedBy:    input.ContactedBy,
		Source:         input.Source,
	}
	if err := c.Validate(); err != nil {
		return event.Contact{}, invalid(err)
	}
	if err := deps.EventStore.AddContact(ctx, e.ID, c); err != nil {
		return event.Contact{}, err
	}

	slog.Info("event_event", "event", "contact_added", "event_id", e.ID, "contact_id", c.ID, "interest", c.InterestLevel)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionCreate).
		WithResource("contact", c.ID).
		WithDescription(fmt.Sprintf("event %s: %s", e.ID, c.Name)))

	if c.FollowUpDate != "" && deps.Notifier.enabled() {
		req, err := deps.Notifier.followUpRequest(e.Title, c)
		if err == nil {
			err = deps.Notifier.send(ctx, req)
		}
		if err != nil {
			slog.Warn("email_event", "event", "follow_up_notification_failed", "contact_id", c.ID, "error", err)
		}
	}
	return c, nil
}

// UpdateFollowUpInput carries input for moving a contact along the follow-up pipeline.
type UpdateFollowUpInput struct {
	EventID   string `validate:"required"`
	ContactID string `validate:"required"`
	Status    string `validate:"required,oneof=pending contacted converted not_interested"`
	Actor     domainAudit.Actor
}

// ExecuteUpdateFollowUpStatus applies a follow-up transition.
// Allowed moves: pending to contacted or not_interested, contacted to converted
// or not_interested. Staying in the same status is a no-op.
// PRE: contact belongs to the event
// POST: contact status updated, or event.ErrInvalidFollowUpTransition and nothing written
func ExecuteUpdateFollowUpStatus(ctx context.Context, input UpdateFollowUpInput, deps EventDeps) (event.Contact, error) {
	if err := checkInput(input); err != nil {
		return event.Contact{}, err
	}
	e, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Contact{}, err
	}
	var current event.Contact
	found := false
	for _, c := range e.Contacts {
		if c.ID == input.ContactID {
			current, found = c, true
			break
		}
	}
	if !found {
		return event.Contact{}, fmt.Errorf("contact %s: %w", input.ContactID, eventStore.ErrContactNotFound)
	}
	if current.FollowUpStatus == input.Status {
		return current, nil
	}
	if !event.CanTransition(current.FollowUpStatus, input.Status) {
		return event.Contact{}, fmt.Errorf("%w: %s to %s: %w", ErrInvalidInput, current.FollowUpStatus, input.Status, event.ErrInvalidFollowUpTransition)
	}
	if _, err := deps.EventStore.UpdateContactStatus(ctx, e.ID, current.ID, input.Status); err != nil {
		return event.Contact{}, err
	}
	current.FollowUpStatus = input.Status

	slog.Info("event_event", "event", "follow_up_updated", "event_id", e.ID, "contact_id", current.ID, "status", input.Status)
	recordAudit(ctx, deps.AuditStore, domainAudit.NewEvent(input.Actor, domainAudit.CategoryEvent, domainAudit.ActionUpdate).
		WithResource("contact", current.ID).
		WithDescription("follow-up " + input.Status))
	return current, nil
}

// SendFollowUpRemindersInput carries the day to remind about.
type SendFollowUpRemindersInput struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

// SendFollowUpRemindersDeps holds dependencies for SendFollowUpReminders.
type SendFollowUpRemindersDeps struct {
	EventStore EventStore
	Notifier   *FollowUpNotifier
}

// ErrNotifierDisabled is returned when reminders are requested without a configured notifier.
var ErrNotifierDisabled = errors.New("follow-up notifications are not configured")

// ExecuteSendFollowUpReminders emails the staff one reminder per open contact
// whose follow-up date is input.Date. Open means pending or contacted.
// POST: returns the number of reminders accepted by the provider
func ExecuteSendFollowUpReminders(ctx context.Context, input SendFollowUpRemindersInput, deps SendFollowUpRemindersDeps) (int, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	if !deps.Notifier.enabled() {
		return 0, ErrNotifierDisabled
	}
	events, err := deps.EventStore.List(ctx, eventStore.ListFilter{})
	if err != nil {
		return 0, err
	}
	var reqs []emailAdapter.SendRequest
	for _, e := range events {
		for _, c := range e.Contacts {
			open := c.FollowUpStatus == event.FollowUpPending || c.FollowUpStatus == event.FollowUpContacted
			if !open || c.FollowUpDate != input.Date {
				continue
			}
			req, err := deps.Notifier.followUpRequest(e.Title, c)
			if err != nil {
				return 0, err
			}
			reqs = append(reqs, req)
		}
	}
	if len(reqs) == 0 {
		return 0, nil
	}
	results, err := deps.Notifier.Sender.SendBatch(ctx, reqs)
	if err != nil && len(results) < len(reqs) {
		for _, req := range reqs[len(results):] {
			deps.Notifier.enqueue(ctx, req, err)
		}
	}
	slog.Info("email_event", "event", "follow_up_reminders_sent", "date", input.Date, "due", len(reqs), "sent", len(results))
	return len(results), err
}
