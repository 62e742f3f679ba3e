package transcription

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/repository/testdb"
	"github.com/vcenk/say-it-translated/internal/storage"
	"github.com/vcenk/say-it-translated/internal/storage/storagetest"
	"github.com/vcenk/say-it-translated/internal/stt"
)

type stubProvider struct {
	calls  atomic.Int32
	result *stt.Result
	err    error
	got    stt.Audio
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Transcribe(_ context.Context, audio stt.Audio) (*stt.Result, error) {
	p.calls.Add(1)
	p.got = audio
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fixture struct {
	repos    *repository.Repositories
	store    *storagetest.Store
	provider *stubProvider
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	repos := repository.New(testdb.Open(t))
	store := storagetest.New(t)
	provider := &stubProvider{result: &stt.Result{
		Text:             "Hello there.",
		Confidence:       0.94,
		DetectedLanguage: "en",
		RequestID:        "dg-req-1",
		Words:            []model.Word{{Word: "hello", Start: 0.1, End: 0.4, Confidence: 0.95}},
		Segments:         []model.Segment{{Start: 0.1, End: 0.9, Text: "Hello there.", Confidence: 0.94}},
	}}
	svc := NewService(repos.Recordings, repos.Transcripts, repos.Audit, store, provider,
		Options{FallbackLanguage: "en"}, zerolog.Nop())
	return &fixture{repos: repos, store: store, provider: provider, svc: svc}
}

// queued stores audio and a queued recording pointing at it. With upload false
// the storage path points at a missing object.
func (f *fixture) queued(t *testing.T, upload bool) *model.Recording {
	ctx := context.Background()
	rec := &model.Recording{
		OwnerID:          uuid.New(),
		Source:           model.SourceUpload,
		OriginalFilename: "talk.wav",
		MimeType:         "audio/wav",
		SizeBytes:        4,
	}
	require.NoError(t, f.repos.Recordings.Create(ctx, rec))

	key := storage.ObjectKey(rec.OwnerID, rec.ID, rec.OriginalFilename)
	if upload {
		require.NoError(t, f.store.Put(ctx, key, strings.NewReader("RIFF"), 4, rec.MimeType))
	}
	require.NoError(t, f.repos.Recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusUploading}, model.StatusQueued,
		repository.RecordingUpdate{StoragePath: &key}))
	rec.StoragePath = key
	rec.Status = model.StatusQueued
	return rec
}

func TestTranscribeCompletesRecording(t *testing.T) {
	f := newFixture(t)
	rec := f.queued(t, true)
	ctx := context.Background()

	tr, err := f.svc.Transcribe(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", tr.Text)
	assert.GreaterOrEqual(t, tr.Confidence, 0.0)
	assert.LessOrEqual(t, tr.Confidence, 1.0)

	assert.Equal(t, "RIFF", string(f.provider.got.Data))
	assert.Equal(t, "audio/wav", f.provider.got.MimeType)
	assert.Equal(t, "talk.wav", f.provider.got.Filename)

	got, err := f.repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.ProviderRequestID)
	assert.Equal(t, "dg-req-1", *got.ProviderRequestID)

	stored, err := f.repos.Transcripts.GetByRecording(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, stored.ID)
	assert.Len(t, stored.Words, 1)
	assert.Len(t, stored.Segments, 1)
}

func TestTranscribeMissingObjectFailsRecording(t *testing.T) {
	f := newFixture(t)
	rec := f.queued(t, false)
	ctx := context.Background()

	_, err := f.svc.Transcribe(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindFetch))
	assert.Equal(t, "Could not fetch audio file", err.Error())
	assert.Zero(t, f.provider.calls.Load())

	got, err := f.repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.NotEmpty(t, *got.ErrorMessage)

	_, err = f.repos.Transcripts.GetByRecording(ctx, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTranscribeProviderErrorFailsRecording(t *testing.T) {
	f := newFixture(t)
	f.provider.err = apperr.Provider(`Deepgram API error: {"err_msg":"bad"}`, nil)
	rec := f.queued(t, true)

	_, err := f.svc.Transcribe(context.Background(), rec.ID)
	require.Error(t, err)

	got, err := f.repos.Recordings.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, `Deepgram API error: {"err_msg":"bad"}`, *got.ErrorMessage)
}

func TestTranscribeUsesFallbackLanguage(t *testing.T) {
	f := newFixture(t)
	f.provider.result.DetectedLanguage = ""
	rec := f.queued(t, true)

	tr, err := f.svc.Transcribe(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", tr.LanguageDetected)
}

func TestTranscribeRunsOncePerRecording(t *testing.T) {
	f := newFixture(t)
	rec := f.queued(t, true)
	ctx := context.Background()

	_, err := f.svc.Transcribe(ctx, rec.ID)
	require.NoError(t, err)

	_, err = f.svc.Transcribe(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, int32(1), f.provider.calls.Load())

	// the losing call must not touch the completed recording
	got, err := f.repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestTranscribeUnknownRecording(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transcribe(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, "Recording not found", err.Error())
}

// completionFails lets every status change through except processing -> completed
type completionFails struct {
	repository.RecordingRepository
}

func (r completionFails) AdvanceStatus(ctx context.Context, id uuid.UUID, from []model.RecordingStatus, to model.RecordingStatus, upd repository.RecordingUpdate) error {
	if to == model.StatusCompleted {
		return apperr.Storage("failed to update recording status", nil)
	}
	return r.RecordingRepository.AdvanceStatus(ctx, id, from, to, upd)
}

func TestTranscribeFailedCompletionLeavesNoTranscript(t *testing.T) {
	f := newFixture(t)
	rec := f.queued(t, true)
	ctx := context.Background()
	svc := NewService(completionFails{f.repos.Recordings}, f.repos.Transcripts, f.repos.Audit, f.store, f.provider,
		Options{FallbackLanguage: "en"}, zerolog.Nop())

	_, err := svc.Transcribe(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	got, err := f.repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)

	_, err = f.repos.Transcripts.GetByRecording(ctx, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
