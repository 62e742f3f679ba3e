package stt

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/config"
)

// NewFromConfig creates the provider selected by STT_PROVIDER
func NewFromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Provider, error) {
	switch cfg.STTProvider {
	case "deepgram", "":
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY environment variable is not set")
		}
		log.Info().Str("model", cfg.DeepgramModel).Msg("creating Deepgram STT provider")
		return NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.DeepgramURL, cfg.DeepgramModel, log), nil
	case "google":
		return NewGoogleProvider(ctx, GoogleConfig{
			ProjectID: cfg.GoogleProjectID,
			KeyData:   cfg.GoogleKeyData,
			Language:  cfg.GoogleLanguage,
		}, log)
	case "fpt":
		if cfg.FPTAPIKey == "" {
			return nil, fmt.Errorf("FPT_AI_API_KEY environment variable is not set")
		}
		log.Info().Str("url", cfg.FPTURL).Msg("creating FPT STT provider")
		return NewFPTProvider(cfg.FPTAPIKey, cfg.FPTURL, log), nil
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: deepgram, google, fpt", cfg.STTProvider)
	}
}
