// Package translation sends transcript text to the language model and keeps every result.
package translation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/ai"
	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/metrics"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
)

// Request is one translation call
type Request struct {
	TranscriptID   string
	TargetLanguage string
	Text           string
}

type Service struct {
	transcripts  repository.TranscriptRepository
	translations repository.TranslationRepository
	recordings   repository.RecordingRepository
	audit        repository.AuditRepository
	translator   ai.Translator
	log          zerolog.Logger
}

func NewService(transcripts repository.TranscriptRepository, translations repository.TranslationRepository,
	recordings repository.RecordingRepository, audit repository.AuditRepository, translator ai.Translator, log zerolog.Logger) *Service {
	return &Service{
		transcripts:  transcripts,
		translations: translations,
		recordings:   recordings,
		audit:        audit,
		translator:   translator,
		log:          log.With().Str("component", "translation").Logger(),
	}
}

// Translate validates the request before any external call, translates the
// text and appends a Translation row. Repeated calls for the same transcript
// and language produce separate rows.
func (s *Service) Translate(ctx context.Context, req Request) (*model.Translation, error) {
	req.TranscriptID = strings.TrimSpace(req.TranscriptID)
	req.TargetLanguage = strings.TrimSpace(req.TargetLanguage)
	if req.TranscriptID == "" || req.TargetLanguage == "" || strings.TrimSpace(req.Text) == "" {
		return nil, apperr.InvalidInput("Transcript ID, target language, and text are required")
	}
	transcriptID, err := uuid.Parse(req.TranscriptID)
	if err != nil {
		return nil, apperr.InvalidInput("Transcript ID is not a valid UUID")
	}

	log := s.log.With().
		Str("transcript_id", transcriptID.String()).
		Str("target_language", req.TargetLanguage).
		Logger()

	transcript, err := s.transcripts.GetByID(ctx, transcriptID)
	if err != nil {
		return nil, s.fail(log, req.TargetLanguage, err)
	}

	callStart := time.Now()
	text, err := s.translator.Translate(ctx, req.Text, req.TargetLanguage)
	metrics.RecordProviderCall("openai", "translate", time.Since(callStart).Seconds())
	if err != nil {
		return nil, s.fail(log, req.TargetLanguage, err)
	}

	tr := &model.Translation{
		TranscriptID: transcript.ID,
		TargetLang:   req.TargetLanguage,
		Text:         text,
		Model:        s.translator.Model(),
	}
	if err := s.translations.Create(ctx, tr); err != nil {
		return nil, s.fail(log, req.TargetLanguage, apperr.Wrap(apperr.KindOf(err), "Failed to save translation", err))
	}

	metrics.RecordTranslation(req.TargetLanguage, "success")
	log.Info().Str("translation_id", tr.ID.String()).Int("chars", len(text)).Msg("translation stored")

	entry := &model.AuditEntry{
		Action:   model.ActionTranslationCreated,
		TargetID: &tr.ID,
		Meta: map[string]any{
			"transcript_id": transcript.ID.String(),
			"target_lang":   tr.TargetLang,
			"model":         tr.Model,
		},
	}
	if s.recordings != nil {
		if rec, err := s.recordings.GetByID(ctx, transcript.RecordingID); err == nil {
			entry.UserID = &rec.OwnerID
		}
	}
	repository.RecordBestEffort(ctx, s.audit, log, entry)
	return tr, nil
}

// History lists the translations of a transcript, oldest first
func (s *Service) History(ctx context.Context, transcriptID uuid.UUID) ([]model.Translation, error) {
	return s.translations.ListByTranscript(ctx, transcriptID)
}

func (s *Service) fail(log zerolog.Logger, targetLanguage string, err error) error {
	metrics.RecordTranslation(targetLanguage, "failed")
	log.Error().Err(err).Str("kind", string(apperr.KindOf(err))).Msg("translation failed")
	return err
}
