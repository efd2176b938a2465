package domain

import "time"

// EventType enumerates the kinds of delivery and engagement events.
type EventType string

const (
	EventSent    EventType = "sent"
	EventOpened  EventType = "opened"
	EventClicked EventType = "clicked"
	EventBounced EventType = "bounced"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventSent, EventOpened, EventClicked, EventBounced:
		return true
	}
	return false
}

// EmailEvent is one append-only audit log entry for a delivery record.
// Events are never mutated or deleted; the latched booleans and counters on
// EmailMessage summarize them but every individual occurrence is kept here.
type EmailEvent struct {
	ID        string            `json:"id" db:"id"`
	EmailID   string            `json:"email_id" db:"email_id"`
	Type      EventType         `json:"event_type" db:"event_type"`
	Timestamp time.Time         `json:"timestamp" db:"timestamp"`
	IPAddress string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string            `json:"user_agent,omitempty" db:"user_agent"`
	Metadata  map[string]string `json:"metadata,omitempty" db:"metadata"`
}

// ClientInfo carries the request-origin details attached to engagement
// events. Zero value means "unknown origin" (e.g. events recorded by the
// dispatcher rather than an inbound tracking request).
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
