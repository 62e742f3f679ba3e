package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/ai"
	"github.com/vcenk/say-it-translated/internal/api"
	"github.com/vcenk/say-it-translated/internal/auth"
	"github.com/vcenk/say-it-translated/internal/capture"
	"github.com/vcenk/say-it-translated/internal/config"
	"github.com/vcenk/say-it-translated/internal/logger"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/storage"
	"github.com/vcenk/say-it-translated/internal/stt"
	"github.com/vcenk/say-it-translated/internal/submission"
	"github.com/vcenk/say-it-translated/internal/transcription"
	"github.com/vcenk/say-it-translated/internal/translation"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.DatabaseURL, repository.PoolConfig{
		MaxIdleConns: cfg.DBMaxIdleConns,
		MaxOpenConns: cfg.DBMaxOpenConns,
		ConnLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return err
	}
	if cfg.DBAutoMigrate {
		if err := repository.AutoMigrate(ctx, db, log); err != nil {
			return err
		}
	}
	repos := repository.New(db)

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("backend", cfg.StorageBackend).Str("bucket", cfg.StorageBucket).Msg("object storage ready")

	provider, err := stt.NewFromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info().Str("provider", provider.Name()).Msg("speech provider ready")

	if cfg.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, translation requests will fail")
	}
	translator := ai.NewOpenAITranslator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.TranslationModel, log)

	submissions := submission.NewService(submission.Limits{
		MaxBytes:    cfg.MaxUploadBytes,
		ProMaxBytes: cfg.ProMaxUploadBytes,
	}, repos.Recordings, repos.Subscriptions, repos.Audit, store, log)

	transcriber := transcription.NewService(repos.Recordings, repos.Transcripts, repos.Audit, store, provider,
		transcription.Options{
			SignedURLTTL:     cfg.SignedURLTTL,
			FallbackLanguage: cfg.FallbackLanguage,
		}, log)

	translations := translation.NewService(repos.Transcripts, repos.Translations, repos.Recordings, repos.Audit, translator, log)

	captures := capture.NewManager(cfg.CaptureSessionTTL, cfg.ProMaxUploadBytes, log)
	go captures.Run(ctx, time.Minute)

	local, _ := store.(*storage.LocalStore)

	if cfg.IsProduction() || os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	api.NewHandler(api.Deps{
		Repos:         repos,
		Submissions:   submissions,
		Transcription: transcriber,
		Translation:   translations,
		Captures:      captures,
		Auth:          auth.NewValidator(cfg.AuthEnabled, cfg.SupabaseJWTSecret, log),
		LocalStore:    local,
		Log:           log,
	}).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("say-it-translated backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
