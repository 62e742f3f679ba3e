package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends
const (
	StorageSupabase = "supabase"
	StorageS3       = "s3"
	StorageLocal    = "local"
)

type Config struct {
	// Service
	Port            int           `env:"PORT" envDefault:"8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBAutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	// Supabase project (storage + auth)
	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseJWTSecret      string `env:"SUPABASE_JWT_SECRET"`
	AuthEnabled            bool   `env:"AUTH_ENABLED" envDefault:"true"`

	// Object storage
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"supabase"`
	StorageBucket  string        `env:"STORAGE_BUCKET" envDefault:"audio-uploads"`
	SignedURLTTL   time.Duration `env:"SIGNED_URL_TTL" envDefault:"3600s"`
	S3Endpoint     string        `env:"S3_ENDPOINT"`
	S3Region       string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID  string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string        `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool          `env:"S3_USE_PATH_STYLE" envDefault:"true"`
	LocalDir       string        `env:"LOCAL_STORAGE_DIR" envDefault:"uploads"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	LocalSignKey   string        `env:"LOCAL_STORAGE_SIGNING_KEY"`

	// Speech provider
	STTProvider      string `env:"STT_PROVIDER" envDefault:"deepgram"`
	DeepgramAPIKey   string `env:"DEEPGRAM_API_KEY"`
	DeepgramURL      string `env:"DEEPGRAM_URL" envDefault:"https://api.deepgram.com/v1/listen"`
	DeepgramModel    string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	GoogleProjectID  string `env:"GOOGLE_STT_PROJECT_ID"`
	GoogleKeyData    string `env:"GOOGLE_STT_KEY_FILE"`
	GoogleLanguage   string `env:"GOOGLE_STT_LANGUAGE" envDefault:"en-US"`
	FPTAPIKey        string `env:"FPT_AI_API_KEY"`
	FPTURL           string `env:"FPT_AI_STT_URL" envDefault:"https://api.fpt.ai/hmi/asr/v1"`
	FallbackLanguage string `env:"FALLBACK_LANGUAGE" envDefault:"en"`

	// Language model
	OpenAIKey        string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	TranslationModel string `env:"TRANSLATION_MODEL" envDefault:"gpt-4o-mini"`

	// Submission limits
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	ProMaxUploadBytes int64         `env:"PRO_MAX_UPLOAD_BYTES" envDefault:"209715200"`
	CaptureSessionTTL time.Duration `env:"CAPTURE_SESSION_TTL" envDefault:"30m"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.STTProvider = strings.ToLower(strings.TrimSpace(cfg.STTProvider))
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase storage backend")
		}
	case StorageS3:
		if c.StorageBucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for the s3 storage backend")
		}
	case StorageLocal:
		if c.LocalSignKey == "" {
			return fmt.Errorf("LOCAL_STORAGE_SIGNING_KEY is required for the local storage backend")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (supported: supabase, s3, local)", c.StorageBackend)
	}

	if c.AuthEnabled && c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required when AUTH_ENABLED is true")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.ProMaxUploadBytes < c.MaxUploadBytes {
		c.ProMaxUploadBytes = c.MaxUploadBytes
	}
	if c.SignedURLTTL <= 0 {
		c.SignedURLTTL = time.Hour
	}
	// OpenAI and speech provider keys are validated when the providers are built
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
