package events

import (
	"context"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
)

// Streams
const (
	StreamAudit = "events:audit"
)

// Event types
const (
	EventAuditEntryRecorded = "audit_entry_recorded"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// AuditEntryEvent announces a newly written activity-log entry. Only ids
// and the action kind travel; listeners reload the timeline themselves.
func AuditEntryEvent(entry models.AuditEntry) Event {
	return Event{
		Type: EventAuditEntryRecorded,
		Payload: map[string]any{
			"entry_id":    entry.ID.String(),
			"subject_id":  entry.SubjectID.String(),
			"action_kind": entry.ActionKind,
			"created_at":  entry.CreatedAt,
		},
	}
}

// SubjectID extracts the subject of an audit event.
func (e Event) SubjectID() (uuid.UUID, bool) {
	s, ok := e.Payload["subject_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
