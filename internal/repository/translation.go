package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

type translationRepository struct {
	db *gorm.DB
}

// NewTranslationRepository creates a gorm-backed translation repository.
// Rows are append-only: translating the same transcript twice keeps both.
func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

func (r *translationRepository) Create(ctx context.Context, t *model.Translation) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	transcriptID := t.TranscriptID
	e := &translationEntity{
		ID:           t.ID,
		TranscriptID: &transcriptID,
		TargetLang:   t.TargetLang,
		Text:         t.Text,
		Model:        t.Model,
		CreatedAt:    t.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return apperr.Storage("failed to create translation", err)
	}
	t.CreatedAt = e.CreatedAt
	return nil
}

func (r *translationRepository) ListByTranscript(ctx context.Context, transcriptID uuid.UUID) ([]model.Translation, error) {
	var rows []translationEntity
	err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("failed to list translations", err)
	}

	out := make([]model.Translation, 0, len(rows))
	for _, e := range rows {
		t := model.Translation{
			ID:         e.ID,
			TargetLang: e.TargetLang,
			Text:       e.Text,
			Model:      e.Model,
			CreatedAt:  e.CreatedAt,
		}
		if e.TranscriptID != nil {
			t.TranscriptID = *e.TranscriptID
		}
		out = append(out, t)
	}
	return out, nil
}
