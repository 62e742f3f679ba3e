package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vcenk/say-it-translated/internal/model"
)

// RecordingUpdate carries the optional columns written alongside a status change.
// Nil fields are left untouched.
type RecordingUpdate struct {
	StoragePath       *string
	ProviderRequestID *string
	ErrorMessage      *string
}

// RecordingRepository defines data access for recordings
type RecordingRepository interface {
	// Create inserts a new recording; a nil ID is generated
	Create(ctx context.Context, rec *model.Recording) error

	// GetByID retrieves a recording by ID
	GetByID(ctx context.Context, id uuid.UUID) (*model.Recording, error)

	// ListByOwner retrieves recordings for an owner, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Recording, error)

	// Update writes descriptive columns (filename, mime type, size, duration)
	Update(ctx context.Context, rec *model.Recording) error

	// AdvanceStatus moves the recording to `to` only if its current status is one of `from`.
	// It returns a Conflict error when the guard does not match.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from []model.RecordingStatus, to model.RecordingStatus, upd RecordingUpdate) error

	// MarkFailed moves a non-terminal recording to failed with the given message
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// Delete removes the recording together with its transcript and translations
	Delete(ctx context.Context, id uuid.UUID) error
}

// TranscriptRepository defines data access for transcripts
type TranscriptRepository interface {
	Create(ctx context.Context, t *model.Transcript) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transcript, error)
	GetByRecording(ctx context.Context, recordingID uuid.UUID) (*model.Transcript, error)
	// Delete removes a transcript that has no translations yet
	Delete(ctx context.Context, id uuid.UUID) error
}

// TranslationRepository defines data access for translations
type TranslationRepository interface {
	Create(ctx context.Context, t *model.Translation) error
	ListByTranscript(ctx context.Context, transcriptID uuid.UUID) ([]model.Translation, error)
}

// SubscriptionRepository is read-only; billing writes happen elsewhere
type SubscriptionRepository interface {
	// HasActive reports whether the user has an active or trialing subscription
	HasActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AuditRepository appends audit trail rows
type AuditRepository interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
}
