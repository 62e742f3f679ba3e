package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a gorm-backed transcript repository
func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Create(ctx context.Context, t *model.Transcript) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	e, err := toTranscriptEntity(t)
	if err != nil {
		return apperr.Storage("failed to encode transcript", err)
	}

	err = r.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("Recording already has a transcript")
	}
	if err != nil {
		return apperr.Storage("failed to create transcript", err)
	}
	t.CreatedAt = e.CreatedAt
	return nil
}

func (r *transcriptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transcript, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *transcriptRepository) GetByRecording(ctx context.Context, recordingID uuid.UUID) (*model.Transcript, error) {
	return r.first(ctx, "recording_id = ?", recordingID)
}

func (r *transcriptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&transcriptEntity{}).Error; err != nil {
		return apperr.Storage("failed to delete transcript", err)
	}
	return nil
}

func (r *transcriptRepository) first(ctx context.Context, query string, arg any) (*model.Transcript, error) {
	var e transcriptEntity
	err := r.db.WithContext(ctx).Where(query, arg).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Transcript")
	}
	if err != nil {
		return nil, apperr.Storage("failed to get transcript", err)
	}
	return e.toModel()
}

func toTranscriptEntity(t *model.Transcript) (*transcriptEntity, error) {
	words, err := marshalJSON(t.Words)
	if err != nil {
		return nil, fmt.Errorf("words: %w", err)
	}
	segments, err := marshalJSON(t.Segments)
	if err != nil {
		return nil, fmt.Errorf("segments: %w", err)
	}

	recordingID := t.RecordingID
	text := t.Text
	confidence := t.Confidence
	lang := t.LanguageDetected
	return &transcriptEntity{
		ID:               t.ID,
		RecordingID:      &recordingID,
		Text:             &text,
		Confidence:       &confidence,
		LanguageDetected: &lang,
		Words:            words,
		Segments:         segments,
		CreatedAt:        t.CreatedAt,
	}, nil
}

func (e *transcriptEntity) toModel() (*model.Transcript, error) {
	t := &model.Transcript{
		ID:               e.ID,
		Text:             derefString(e.Text),
		LanguageDetected: derefString(e.LanguageDetected),
		Words:            []model.Word{},
		Segments:         []model.Segment{},
		CreatedAt:        e.CreatedAt,
	}
	if e.RecordingID != nil {
		t.RecordingID = *e.RecordingID
	}
	if e.Confidence != nil {
		t.Confidence = *e.Confidence
	}
	if len(e.Words) > 0 {
		if err := json.Unmarshal(e.Words, &t.Words); err != nil {
			return nil, apperr.Storage("failed to decode transcript words", err)
		}
	}
	if len(e.Segments) > 0 {
		if err := json.Unmarshal(e.Segments, &t.Segments); err != nil {
			return nil, apperr.Storage("failed to decode transcript segments", err)
		}
	}
	return t, nil
}

// marshalJSON encodes v for a jsonb column, storing an empty array for nil slices.
func marshalJSON[T any](v []T) (datatypes.JSON, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
