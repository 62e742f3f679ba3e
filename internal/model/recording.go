package model

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus is the lifecycle state of a Recording
type RecordingStatus string

const (
	StatusUploading  RecordingStatus = "uploading"
	StatusQueued     RecordingStatus = "queued"
	StatusProcessing RecordingStatus = "processing"
	StatusCompleted  RecordingStatus = "completed"
	StatusFailed     RecordingStatus = "failed"
)

// Recording sources
const (
	SourceUpload    = "upload"
	SourceRecording = "recording"
)

var statusRank = map[RecordingStatus]int{
	StatusUploading:  0,
	StatusQueued:     1,
	StatusProcessing: 2,
	StatusCompleted:  3,
}

// Terminal reports whether no further transition is possible.
func (s RecordingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s RecordingStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. Any non-terminal status may move to failed.
func (s RecordingStatus) CanTransitionTo(next RecordingStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Recording represents one uploaded or captured audio asset
type Recording struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"user_id"`
	Source            string          `json:"source"`
	OriginalFilename  string          `json:"original_filename"`
	MimeType          string          `json:"mime_type"`
	SizeBytes         int64           `json:"size_bytes"`
	DurationSec       *float64        `json:"duration_sec,omitempty"`
	StoragePath       string          `json:"storage_path,omitempty"`
	Status            RecordingStatus `json:"status"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	ProviderRequestID *string         `json:"provider_request_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
