package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

// Subscription statuses that unlock the pro upload ceiling
var activeSubscriptionStatuses = []string{"active", "trialing"}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a read-only subscription lookup
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&subscriptionEntity{}).
		Where("user_id = ? AND status IN ?", userID, activeSubscriptionStatuses).
		Count(&count).Error
	if err != nil {
		return false, apperr.Storage("failed to look up subscription", err)
	}
	return count > 0, nil
}
