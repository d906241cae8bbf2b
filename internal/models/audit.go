package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one immutable row of the activity log. Details holds the
// JSON text {"field", "previousValue", "newValue"} exactly as written.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	ActorID    uuid.UUID `json:"actor_id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	ActionKind string    `json:"action_kind"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}
