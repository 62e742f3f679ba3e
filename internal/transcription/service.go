// Package transcription turns a queued recording into a persisted transcript.
package transcription

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/metrics"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/storage"
	"github.com/vcenk/say-it-translated/internal/stt"
)

// Options tune the orchestrator
type Options struct {
	SignedURLTTL     time.Duration
	FallbackLanguage string
	FetchTimeout     time.Duration
}

// Service runs the transcription pipeline for one recording per call
type Service struct {
	recordings  repository.RecordingRepository
	transcripts repository.TranscriptRepository
	audit       repository.AuditRepository
	store       storage.ObjectStore
	provider    stt.Provider
	fetcher     *resty.Client
	opts        Options
	log         zerolog.Logger
}

func NewService(recordings repository.RecordingRepository, transcripts repository.TranscriptRepository,
	audit repository.AuditRepository, store storage.ObjectStore, provider stt.Provider, opts Options, log zerolog.Logger) *Service {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	if opts.FallbackLanguage == "" {
		opts.FallbackLanguage = "en"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Minute
	}
	return &Service{
		recordings:  recordings,
		transcripts: transcripts,
		audit:       audit,
		store:       store,
		provider:    provider,
		fetcher:     resty.New().SetTimeout(opts.FetchTimeout),
		opts:        opts,
		log:         log.With().Str("component", "transcription").Logger(),
	}
}

// Transcribe claims the recording (queued -> processing), fetches its audio
// through a signed URL, runs the speech provider, stores the transcript and
// completes the recording. Any failure after the claim moves the recording to
// failed with the error message. A lost claim returns Conflict and leaves the
// recording to the caller that won it.
func (s *Service) Transcribe(ctx context.Context, recordingID uuid.UUID) (*model.Transcript, error) {
	log := s.log.With().Str("recording_id", recordingID.String()).Logger()

	rec, err := s.recordings.GetByID(ctx, recordingID)
	if err != nil {
		metrics.RecordTranscription(s.provider.Name(), "failed")
		return nil, err
	}

	err = s.recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusQueued}, model.StatusProcessing, repository.RecordingUpdate{})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			log.Warn().Str("status", string(rec.Status)).Msg("recording is not queued, skipping")
			metrics.RecordTranscription(s.provider.Name(), "conflict")
			return nil, err
		}
		return nil, s.fail(ctx, log, rec.ID, err)
	}

	transcript, err := s.run(ctx, log, rec)
	if err != nil {
		return nil, s.fail(ctx, log, rec.ID, err)
	}

	metrics.RecordTranscription(s.provider.Name(), "success")
	repository.RecordBestEffort(ctx, s.audit, log, &model.AuditEntry{
		UserID:   &rec.OwnerID,
		Action:   model.ActionTranscriptCreated,
		TargetID: &transcript.ID,
		Meta: map[string]any{
			"recording_id": rec.ID.String(),
			"provider":     s.provider.Name(),
			"language":     transcript.LanguageDetected,
		},
	})
	return transcript, nil
}

func (s *Service) run(ctx context.Context, log zerolog.Logger, rec *model.Recording) (*model.Transcript, error) {
	audio, err := s.fetchAudio(ctx, rec)
	if err != nil {
		return nil, err
	}

	callStart := time.Now()
	res, err := s.provider.Transcribe(ctx, stt.Audio{
		Data:     audio,
		MimeType: rec.MimeType,
		Filename: rec.OriginalFilename,
	})
	metrics.RecordProviderCall(s.provider.Name(), "transcribe", time.Since(callStart).Seconds())
	if err != nil {
		return nil, err
	}

	language := res.DetectedLanguage
	if language == "" {
		language = s.opts.FallbackLanguage
	}
	transcript := &model.Transcript{
		RecordingID:      rec.ID,
		Text:             res.Text,
		Confidence:       clamp01(res.Confidence),
		LanguageDetected: language,
		Words:            res.Words,
		Segments:         res.Segments,
	}
	if err := s.transcripts.Create(ctx, transcript); err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), "Failed to save transcript", err)
	}

	upd := repository.RecordingUpdate{}
	if res.RequestID != "" {
		upd.ProviderRequestID = &res.RequestID
	}
	err = s.recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusProcessing}, model.StatusCompleted, upd)
	if err != nil {
		// a failed recording must not keep a transcript
		if delErr := s.transcripts.Delete(context.WithoutCancel(ctx), transcript.ID); delErr != nil {
			log.Warn().Err(delErr).Str("transcript_id", transcript.ID.String()).Msg("failed to remove orphaned transcript")
		}
		return nil, err
	}

	log.Info().
		Str("transcript_id", transcript.ID.String()).
		Str("request_id", res.RequestID).
		Float64("confidence", transcript.Confidence).
		Msg("transcription completed")
	return transcript, nil
}

// fetchAudio reads the stored object through a short-lived signed URL
func (s *Service) fetchAudio(ctx context.Context, rec *model.Recording) ([]byte, error) {
	if rec.StoragePath == "" {
		return nil, apperr.Fetch("Could not get file URL", nil)
	}

	signedURL, err := s.store.SignedURL(ctx, rec.StoragePath, s.opts.SignedURLTTL)
	if err != nil {
		return nil, apperr.Fetch("Could not get file URL", err)
	}

	resp, err := s.fetcher.R().SetContext(ctx).Get(signedURL)
	if err != nil {
		return nil, apperr.Fetch("Could not fetch audio file", err)
	}
	if !resp.IsSuccess() {
		s.log.Warn().Int("status", resp.StatusCode()).Str("key", rec.StoragePath).Msg("signed url fetch failed")
		return nil, apperr.Fetch("Could not fetch audio file", nil)
	}
	return resp.Body(), nil
}

// fail records the error on the recording and returns it. The status update is best-effort.
func (s *Service) fail(ctx context.Context, log zerolog.Logger, id uuid.UUID, cause error) error {
	metrics.RecordTranscription(s.provider.Name(), "failed")
	log.Error().Err(cause).Str("kind", string(apperr.KindOf(cause))).Msg("transcription failed")

	if err := s.recordings.MarkFailed(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		log.Warn().Err(err).Msg("failed to mark recording failed")
	}
	return cause
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
