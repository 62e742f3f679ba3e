package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Record(ctx context.Context, entry *model.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	var meta datatypes.JSON
	if len(entry.Meta) > 0 {
		b, err := json.Marshal(entry.Meta)
		if err != nil {
			return apperr.Storage("failed to encode audit meta", err)
		}
		meta = b
	}

	action := entry.Action
	e := &auditLogEntity{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    &action,
		TargetID:  entry.TargetID,
		Meta:      meta,
		CreatedAt: entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return apperr.Storage("failed to write audit entry", err)
	}
	entry.CreatedAt = e.CreatedAt
	return nil
}

// RecordBestEffort writes entry and logs failures. Audit rows never fail the caller.
func RecordBestEffort(ctx context.Context, repo AuditRepository, log zerolog.Logger, entry *model.AuditEntry) {
	if repo == nil {
		return
	}
	if err := repo.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", entry.Action).Msg("failed to write audit entry")
	}
}
