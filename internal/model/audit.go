package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	ActionRecordingSubmitted = "recording.submitted"
	ActionRecordingDeleted   = "recording.deleted"
	ActionTranscriptCreated  = "transcript.created"
	ActionTranslationCreated = "translation.created"
)

// AuditEntry is one row of the audit trail
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	TargetID  *uuid.UUID     `json:"target_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
