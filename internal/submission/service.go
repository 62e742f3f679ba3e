// Package submission validates audio assets and stores them as queued recordings.
package submission

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/metrics"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/storage"
)

// Limits are the byte-size ceilings by plan
type Limits struct {
	MaxBytes    int64
	ProMaxBytes int64
}

// Asset is a candidate upload. Body must yield exactly Size bytes.
type Asset struct {
	OwnerID      uuid.UUID
	Source       string // model.SourceUpload or model.SourceRecording
	Filename     string
	DeclaredType string
	Size         int64
	DurationSec  *float64
	Body         io.Reader
}

// Service orchestrates recording submission and removal
type Service struct {
	limits     Limits
	recordings repository.RecordingRepository
	subs       repository.SubscriptionRepository
	audit      repository.AuditRepository
	store      storage.ObjectStore
	log        zerolog.Logger
}

func NewService(limits Limits, recordings repository.RecordingRepository, subs repository.SubscriptionRepository,
	audit repository.AuditRepository, store storage.ObjectStore, log zerolog.Logger) *Service {
	if limits.ProMaxBytes < limits.MaxBytes {
		limits.ProMaxBytes = limits.MaxBytes
	}
	return &Service{
		limits:     limits,
		recordings: recordings,
		subs:       subs,
		audit:      audit,
		store:      store,
		log:        log.With().Str("component", "submission").Logger(),
	}
}

// CeilingFor returns the byte ceiling for owner. Lookup failures fall back to the free ceiling.
func (s *Service) CeilingFor(ctx context.Context, ownerID uuid.UUID) int64 {
	if s.subs == nil || s.limits.ProMaxBytes == s.limits.MaxBytes {
		return s.limits.MaxBytes
	}
	pro, err := s.subs.HasActive(ctx, ownerID)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", ownerID.String()).Msg("subscription lookup failed, using free ceiling")
		return s.limits.MaxBytes
	}
	if pro {
		return s.limits.ProMaxBytes
	}
	return s.limits.MaxBytes
}

// validate checks type and size before anything is written. It returns the
// stored MIME type and a reader that replays any sniffed bytes.
func (s *Service) validate(ctx context.Context, a Asset) (string, io.Reader, error) {
	if a.OwnerID == uuid.Nil {
		return "", nil, apperr.InvalidInput("owner is required")
	}
	if a.Body == nil || a.Size <= 0 {
		return "", nil, apperr.InvalidInput("audio file is empty")
	}

	body := a.Body
	mimeType, ok := normalizeMIME(a.DeclaredType)
	if !ok && needsSniff(a.DeclaredType) {
		br := bufio.NewReaderSize(a.Body, sniffLimit)
		head, _ := br.Peek(sniffLimit)
		mimeType, ok = sniffMIME(head)
		body = br
	}
	if !ok {
		return "", nil, apperr.InvalidInput(fmt.Sprintf("unsupported audio type %q", baseMIME(a.DeclaredType)))
	}

	ceiling := s.CeilingFor(ctx, a.OwnerID)
	if a.Size > ceiling {
		return "", nil, apperr.InvalidInput(fmt.Sprintf("file size %d exceeds maximum of %d bytes", a.Size, ceiling))
	}
	return mimeType, body, nil
}

// Submit validates the asset, creates an uploading Recording, stores the bytes
// under {owner}/{recording}/{filename} and advances the Recording to queued.
// Rejected assets leave no row and no object behind.
func (s *Service) Submit(ctx context.Context, a Asset) (*model.Recording, error) {
	mimeType, body, err := s.validate(ctx, a)
	if err != nil {
		metrics.RecordUpload(baseMIME(a.DeclaredType), "rejected", a.Size)
		return nil, err
	}

	source := a.Source
	if source == "" {
		source = model.SourceUpload
	}
	rec := &model.Recording{
		OwnerID:          a.OwnerID,
		Source:           source,
		OriginalFilename: a.Filename,
		MimeType:         mimeType,
		SizeBytes:        a.Size,
		DurationSec:      a.DurationSec,
		Status:           model.StatusUploading,
	}
	if err := s.recordings.Create(ctx, rec); err != nil {
		metrics.RecordUpload(mimeType, "failed", a.Size)
		return nil, err
	}

	log := s.log.With().Str("recording_id", rec.ID.String()).Logger()
	key := storage.ObjectKey(a.OwnerID, rec.ID, a.Filename)

	if err := s.store.Put(ctx, key, body, a.Size, mimeType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to store audio")
		s.markFailed(ctx, rec, "Failed to upload audio file")
		metrics.RecordUpload(mimeType, "failed", a.Size)
		return nil, apperr.Storage("Failed to upload audio file", err)
	}

	err = s.recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusUploading}, model.StatusQueued,
		repository.RecordingUpdate{StoragePath: &key})
	if err != nil {
		log.Error().Err(err).Msg("failed to queue recording")
		s.markFailed(ctx, rec, "Failed to queue recording")
		metrics.RecordUpload(mimeType, "failed", a.Size)
		return nil, err
	}
	rec.Status = model.StatusQueued
	rec.StoragePath = key

	metrics.RecordUpload(mimeType, "success", a.Size)
	log.Info().Str("key", key).Int64("size_bytes", a.Size).Str("source", source).Msg("recording queued")

	owner := a.OwnerID
	repository.RecordBestEffort(ctx, s.audit, s.log, &model.AuditEntry{
		UserID:   &owner,
		Action:   model.ActionRecordingSubmitted,
		TargetID: &rec.ID,
		Meta: map[string]any{
			"source":     source,
			"mime_type":  mimeType,
			"size_bytes": a.Size,
		},
	})
	return rec, nil
}

// markFailed is best-effort; the caller already has an error to return
func (s *Service) markFailed(ctx context.Context, rec *model.Recording, msg string) {
	if err := s.recordings.MarkFailed(ctx, rec.ID, msg); err != nil {
		s.log.Warn().Err(err).Str("recording_id", rec.ID.String()).Msg("failed to mark recording failed")
		return
	}
	rec.Status = model.StatusFailed
	rec.ErrorMessage = &msg
}

// Remove deletes an owner's recording with its transcript, translations and stored object.
func (s *Service) Remove(ctx context.Context, ownerID, recordingID uuid.UUID) error {
	rec, err := s.recordings.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return apperr.NotFound("Recording")
	}

	if err := s.recordings.Delete(ctx, rec.ID); err != nil {
		return err
	}
	if rec.StoragePath != "" {
		if err := s.store.Delete(ctx, rec.StoragePath); err != nil {
			s.log.Warn().Err(err).Str("key", rec.StoragePath).Msg("failed to delete stored audio")
		}
	}

	repository.RecordBestEffort(ctx, s.audit, s.log, &model.AuditEntry{
		UserID:   &ownerID,
		Action:   model.ActionRecordingDeleted,
		TargetID: &rec.ID,
	})
	return nil
}
