package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category represents the area of the console an audit event belongs to.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryMember     Category = "member"
	CategorySession    Category = "session"
	CategoryAttendance Category = "attendance"
	CategoryEvent      Category = "event"
	CategorySystem     Category = "system"
)

// Action represents the action that occurred.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionComplete Action = "complete"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionDenied   Action = "denied"
	ActionSeed     Action = "seed"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event represents a single audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ActorRole    string    `json:"actor_role"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// System is the actor for CLI and boot-time actions.
var System = Actor{ID: "system", Email: "system", Role: "system"}

// NewEvent creates a new audit event with the current timestamp.
// PRE: action is non-empty
// POST: Returns an Event with a fresh ID and the provided fields
func NewEvent(actor Actor, category Category, action Action) Event {
	return Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Category:   category,
		Action:     action,
		Severity:   SeverityInfo,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType and resourceID are non-empty
// POST: Event resource fields are populated
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets IP address and user agent from HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
