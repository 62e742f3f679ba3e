package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database named by url. sqlite URLs ("sqlite://path" or
// "file:...") are accepted for local development; anything else is Postgres.
func Open(url string, pool PoolConfig) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return OpenSQLite(url)
	default:
		return OpenPostgres(url, pool)
	}
}

// OpenSQLite opens an embedded database
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates the tables for local development and tests. In
// production the schema is owned by the managed backend.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	err := db.WithContext(ctx).AutoMigrate(
		&recordingEntity{},
		&transcriptEntity{},
		&translationEntity{},
		&usageCounterEntity{},
		&subscriptionEntity{},
		&stripeCustomerEntity{},
		&profileEntity{},
		&auditLogEntity{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("applied schema migrations")
	return nil
}

// Repositories bundles the gorm-backed repositories over one connection
type Repositories struct {
	Recordings    RecordingRepository
	Transcripts   TranscriptRepository
	Translations  TranslationRepository
	Subscriptions SubscriptionRepository
	Audit         AuditRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Recordings:    NewRecordingRepository(db),
		Transcripts:   NewTranscriptRepository(db),
		Translations:  NewTranslationRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Audit:         NewAuditRepository(db),
	}
}

// SeedSubscription inserts a subscription row. Billing owns this table in
// production; the helper exists for local setups and tests.
func SeedSubscription(ctx context.Context, db *gorm.DB, userID uuid.UUID, priceID, status string) error {
	owner := userID
	e := &subscriptionEntity{ID: uuid.New(), UserID: &owner, PriceID: priceID, Status: status}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to seed subscription: %w", err)
	}
	return nil
}
