package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventProfileCreated EventType = "profile_created"
	EventProfileSaved   EventType = "profile_saved"
	EventProfileLoaded  EventType = "profile_loaded"
	EventProfileDeleted EventType = "profile_deleted"
	EventSaveFailed     EventType = "save_failed"
)

// Event is a fire-and-forget notification about a profile
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ProfileID ProfileID `json:"profile_id,omitempty"`
	Error     string    `json:"error,omitempty"` // Set for failure events
}
