package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

var nonTerminal = []model.RecordingStatus{
	model.StatusUploading,
	model.StatusQueued,
	model.StatusProcessing,
}

type recordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a gorm-backed recording repository
func NewRecordingRepository(db *gorm.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

func (r *recordingRepository) Create(ctx context.Context, rec *model.Recording) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = model.StatusUploading
	}

	e := toRecordingEntity(rec)
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return apperr.Storage("failed to create recording", err)
	}
	rec.CreatedAt = e.CreatedAt
	return nil
}

func (r *recordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Recording, error) {
	var e recordingEntity
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Recording")
	}
	if err != nil {
		return nil, apperr.Storage("failed to get recording", err)
	}
	return e.toModel(), nil
}

func (r *recordingRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Recording, error) {
	var rows []recordingEntity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("failed to list recordings", err)
	}

	recordings := make([]model.Recording, 0, len(rows))
	for i := range rows {
		recordings = append(recordings, *rows[i].toModel())
	}
	return recordings, nil
}

func (r *recordingRepository) Update(ctx context.Context, rec *model.Recording) error {
	res := r.db.WithContext(ctx).
		Model(&recordingEntity{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"original_filename": nullString(rec.OriginalFilename),
			"mime_type":         nullString(rec.MimeType),
			"size_bytes":        rec.SizeBytes,
			"duration_sec":      rec.DurationSec,
		})
	if res.Error != nil {
		return apperr.Storage("failed to update recording", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Recording")
	}
	return nil
}

func (r *recordingRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from []model.RecordingStatus, to model.RecordingStatus, upd RecordingUpdate) error {
	for _, s := range from {
		if !s.CanTransitionTo(to) {
			return fmt.Errorf("illegal status transition %s -> %s", s, to)
		}
	}

	fields := map[string]any{"status": string(to)}
	if upd.StoragePath != nil {
		fields["storage_path"] = *upd.StoragePath
	}
	if upd.ProviderRequestID != nil {
		fields["deepgram_request_id"] = *upd.ProviderRequestID
	}
	if upd.ErrorMessage != nil {
		fields["error_message"] = *upd.ErrorMessage
	}

	res := r.db.WithContext(ctx).
		Model(&recordingEntity{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		Updates(fields)
	if res.Error != nil {
		return apperr.Storage("failed to update recording status", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the row is gone or another caller moved it first.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Conflict(fmt.Sprintf("Recording is %s, expected %v", current.Status, from))
}

func (r *recordingRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.AdvanceStatus(ctx, id, nonTerminal, model.StatusFailed, RecordingUpdate{ErrorMessage: &message})
}

func (r *recordingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transcriptIDs []uuid.UUID
		if err := tx.Model(&transcriptEntity{}).Where("recording_id = ?", id).Pluck("id", &transcriptIDs).Error; err != nil {
			return apperr.Storage("failed to load transcripts", err)
		}
		if len(transcriptIDs) > 0 {
			if err := tx.Where("transcript_id IN ?", transcriptIDs).Delete(&translationEntity{}).Error; err != nil {
				return apperr.Storage("failed to delete translations", err)
			}
		}
		if err := tx.Where("recording_id = ?", id).Delete(&transcriptEntity{}).Error; err != nil {
			return apperr.Storage("failed to delete transcript", err)
		}
		res := tx.Where("id = ?", id).Delete(&recordingEntity{})
		if res.Error != nil {
			return apperr.Storage("failed to delete recording", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Recording")
		}
		return nil
	})
}

func statusStrings(statuses []model.RecordingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toRecordingEntity(rec *model.Recording) *recordingEntity {
	status := string(rec.Status)
	e := &recordingEntity{
		ID:                rec.ID,
		Source:            rec.Source,
		OriginalFilename:  nullString(rec.OriginalFilename),
		MimeType:          nullString(rec.MimeType),
		DurationSec:       rec.DurationSec,
		StoragePath:       nullString(rec.StoragePath),
		Status:            &status,
		ErrorMessage:      rec.ErrorMessage,
		DeepgramRequestID: rec.ProviderRequestID,
		CreatedAt:         rec.CreatedAt,
	}
	if rec.OwnerID != uuid.Nil {
		owner := rec.OwnerID
		e.UserID = &owner
	}
	if rec.SizeBytes > 0 {
		size := rec.SizeBytes
		e.SizeBytes = &size
	}
	return e
}

func (e *recordingEntity) toModel() *model.Recording {
	rec := &model.Recording{
		ID:                e.ID,
		Source:            e.Source,
		OriginalFilename:  derefString(e.OriginalFilename),
		MimeType:          derefString(e.MimeType),
		DurationSec:       e.DurationSec,
		StoragePath:       derefString(e.StoragePath),
		Status:            model.RecordingStatus(derefString(e.Status)),
		ErrorMessage:      e.ErrorMessage,
		ProviderRequestID: e.DeepgramRequestID,
		CreatedAt:         e.CreatedAt,
	}
	if e.UserID != nil {
		rec.OwnerID = *e.UserID
	}
	if e.SizeBytes != nil {
		rec.SizeBytes = *e.SizeBytes
	}
	return rec
}
