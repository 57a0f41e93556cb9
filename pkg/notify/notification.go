// Package notify implements the auto-expiring user notification queue.
package notify

import "time"

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityDanger:
		return true
	}
	return false
}

// ParseSeverity returns the severity named by s, falling back to info.
func ParseSeverity(s string) Severity {
	sev := Severity(s)
	if !sev.Valid() {
		return SeverityInfo
	}
	return sev
}

// Phase is the display lifecycle position of a notification.
type Phase uint8

const (
	// PhaseEntering covers the entry transition after Show.
	PhaseEntering Phase = iota
	// PhaseDisplayed is the steady visible state.
	PhaseDisplayed
	// PhaseLeaving covers the exit transition; removal is already committed.
	PhaseLeaving
	// PhaseRemoved is terminal.
	PhaseRemoved
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEntering:
		return "entering"
	case PhaseDisplayed:
		return "displayed"
	case PhaseLeaving:
		return "leaving"
	case PhaseRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Notification is a short-lived user-facing message.
type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
	Phase     Phase         `json:"phase"`
}

// Persistent reports whether the notification never expires on its own.
func (n Notification) Persistent() bool {
	return n.TTL <= 0
}

// EventKind distinguishes queue events.
type EventKind uint8

const (
	EventShown EventKind = iota
	EventDisplayed
	EventLeaving
	EventRemoved
)

// Event is emitted on every lifecycle transition. Each notification produces
// exactly one EventShown and exactly one EventRemoved.
type Event struct {
	Kind         EventKind
	Notification Notification
}

// Notifier is the narrow interface components use to surface messages.
type Notifier interface {
	Show(message string, severity Severity, ttl time.Duration) Notification
}
