package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEventType represents what happened to a record
type ChangeEventType string

const (
	ChangeEventUpdated  ChangeEventType = "updated"
	ChangeEventParsed   ChangeEventType = "parsed"
	ChangeEventImported ChangeEventType = "imported"
	ChangeEventDeleted  ChangeEventType = "deleted"
	ChangeEventSynced   ChangeEventType = "synced"
)

// ChangeEvent announces that appointments of a project changed.
// AppointmentIDs may be empty for project-wide changes such as a sync.
type ChangeEvent struct {
	ID             string          `json:"id"`
	ProjectName    string          `json:"project_name"`
	EventType      ChangeEventType `json:"event_type"`
	AppointmentIDs []string        `json:"appointment_ids,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewChangeEvent creates a new change event
func NewChangeEvent(project string, eventType ChangeEventType, ids ...string) *ChangeEvent {
	return &ChangeEvent{
		ID:             uuid.NewString(),
		ProjectName:    project,
		EventType:      eventType,
		AppointmentIDs: ids,
		Timestamp:      time.Now().UTC(),
	}
}
