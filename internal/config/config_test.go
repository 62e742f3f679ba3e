package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "https://demo.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, StorageSupabase, cfg.StorageBackend)
	assert.Equal(t, "audio-uploads", cfg.StorageBucket)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, "deepgram", cfg.STTProvider)
	assert.Equal(t, "nova-2", cfg.DeepgramModel)
	assert.Equal(t, "gpt-4o-mini", cfg.TranslationModel)
	assert.Equal(t, "en", cfg.FallbackLanguage)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, int64(200*1024*1024), cfg.ProMaxUploadBytes)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoadRequiresJWTSecretWhenAuthEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AUTH_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AuthEnabled)
}

func TestProCeilingNeverBelowFree(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "1000")
	t.Setenv("PRO_MAX_UPLOAD_BYTES", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cfg.ProMaxUploadBytes)
}

func TestLocalBackendNeedsSigningKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "local")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCAL_STORAGE_SIGNING_KEY")

	t.Setenv("LOCAL_STORAGE_SIGNING_KEY", "dev-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "uploads", cfg.LocalDir)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
}
