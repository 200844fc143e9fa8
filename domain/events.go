package domain

import "time"

// SessionEventType defines the kind of session transition
type SessionEventType string

const (
	// Credential lifecycle events
	SessionSignedIn   SessionEventType = "SESSION_SIGNED_IN"
	SessionSignedOut  SessionEventType = "SESSION_SIGNED_OUT"
	SessionRehydrated SessionEventType = "SESSION_REHYDRATED"
	SessionRefreshed  SessionEventType = "SESSION_REFRESHED"
	SessionForceClear SessionEventType = "SESSION_FORCE_CLEARED"

	// Transient events
	SessionPending SessionEventType = "SESSION_PENDING"
	SessionSettled SessionEventType = "SESSION_SETTLED"
	SessionFailed  SessionEventType = "SESSION_FAILED"
)

// SessionEvent represents one observable session transition
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	Session   Session          `json:"-"`
	Action    string           `json:"action,omitempty"`
	ErrorMsg  string           `json:"error_msg,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewSessionEvent creates an event with common fields populated
func NewSessionEvent(t SessionEventType, action string, snapshot Session) SessionEvent {
	return SessionEvent{
		Type:      t,
		Session:   snapshot,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// WithError sets failure details on the event
func (e SessionEvent) WithError(err error) SessionEvent {
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}
