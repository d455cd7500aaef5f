package event

import (
	"context"
	"errors"

	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/event"
)

// ErrEventNotFound is returned by owned-collection commands when the parent event is missing.
var ErrEventNotFound = errors.New("event not found")

// ErrContactNotFound is returned when a contact does not belong to the event.
var ErrContactNotFound = errors.New("contact not found")

// Store persists Event state and its owned participants, contacts and expenses.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	Delete(ctx context.Context, id string) error
	AddContact(ctx context.Context, eventID string, c domain.Contact) error
	AddParticipant(ctx context.Context, eventID string, p domain.Participant) error
	AddExpense(ctx context.Context, eventID string, e domain.Expense) error
	UpdateContactStatus(ctx context.Context, eventID, contactID, status string) (domain.Contact, error)
	CompleteEvent(ctx context.Context, eventID string, complete func(*domain.Event) error) (domain.Event, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Status string
	Type   string
}
