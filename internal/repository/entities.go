package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Table bindings mirror the managed backend schema. Nullable columns are pointers.

type recordingEntity struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID            *uuid.UUID `gorm:"type:uuid;index"`
	Source            string     `gorm:"not null"`
	OriginalFilename  *string
	MimeType          *string
	SizeBytes         *int64
	DurationSec       *float64
	StoragePath       *string
	Status            *string `gorm:"index"`
	ErrorMessage      *string
	DeepgramRequestID *string
	CreatedAt         time.Time
}

func (recordingEntity) TableName() string { return "recordings" }

type transcriptEntity struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RecordingID      *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Text             *string
	Confidence       *float64
	LanguageDetected *string
	Words            datatypes.JSON
	Segments         datatypes.JSON
	CreatedAt        time.Time
}

func (transcriptEntity) TableName() string { return "transcripts" }

type translationEntity struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TranscriptID *uuid.UUID `gorm:"type:uuid;index"`
	TargetLang   string     `gorm:"not null"`
	Text         string     `gorm:"not null"`
	Model        string     `gorm:"not null"`
	CreatedAt    time.Time
}

func (translationEntity) TableName() string { return "translations" }

type usageCounterEntity struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID             *uuid.UUID `gorm:"type:uuid;index"`
	PeriodStart        time.Time  `gorm:"not null"`
	PeriodEnd          time.Time  `gorm:"not null"`
	SttSecondsUsed     *int64
	TranslateCharsUsed *int64
	CreatedAt          time.Time
}

func (usageCounterEntity) TableName() string { return "usage_counters" }

type subscriptionEntity struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID             *uuid.UUID `gorm:"type:uuid;index"`
	PriceID            string     `gorm:"not null"`
	Status             string     `gorm:"not null"`
	CancelAtPeriodEnd  *bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CreatedAt          time.Time
}

func (subscriptionEntity) TableName() string { return "subscriptions" }

type stripeCustomerEntity struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID string    `gorm:"not null"`
	CreatedAt  time.Time
}

func (stripeCustomerEntity) TableName() string { return "stripe_customers" }

type profileEntity struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName          *string
	AvatarURL         *string
	DefaultTargetLang *string
	Role              *string
	Tz                *string
	CreatedAt         time.Time
}

func (profileEntity) TableName() string { return "profiles" }

type auditLogEntity struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"`
	Action    *string
	TargetID  *uuid.UUID `gorm:"type:uuid"`
	Meta      datatypes.JSON
	CreatedAt time.Time
}

func (auditLogEntity) TableName() string { return "audit_log" }
