package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/repository/testdb"
)

func newRecording(owner uuid.UUID) *model.Recording {
	return &model.Recording{
		OwnerID:          owner,
		Source:           model.SourceUpload,
		OriginalFilename: "meeting.wav",
		MimeType:         "audio/wav",
		SizeBytes:        512000,
	}
}

func ptr[T any](v T) *T { return &v }

func TestRecordingLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))
	owner := uuid.New()

	rec := newRecording(owner)
	require.NoError(t, repos.Recordings.Create(ctx, rec))
	require.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, model.StatusUploading, rec.Status)

	path := owner.String() + "/" + rec.ID.String() + "/meeting.wav"
	err := repos.Recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusUploading}, model.StatusQueued,
		repository.RecordingUpdate{StoragePath: &path})
	require.NoError(t, err)

	got, err := repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.Equal(t, path, got.StoragePath)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, int64(512000), got.SizeBytes)

	got.DurationSec = ptr(10.0)
	require.NoError(t, repos.Recordings.Update(ctx, got))
	got, err = repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DurationSec)
	assert.InDelta(t, 10.0, *got.DurationSec, 0.001)
}

func TestAdvanceStatusGuard(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	rec.Status = model.StatusQueued
	require.NoError(t, repos.Recordings.Create(ctx, rec))

	claim := func() error {
		return repos.Recordings.AdvanceStatus(ctx, rec.ID,
			[]model.RecordingStatus{model.StatusQueued}, model.StatusProcessing, repository.RecordingUpdate{})
	}
	require.NoError(t, claim())

	err := claim()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = repos.Recordings.AdvanceStatus(ctx, uuid.New(),
		[]model.RecordingStatus{model.StatusQueued}, model.StatusProcessing, repository.RecordingUpdate{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// backwards transitions are rejected before touching the database
	err = repos.Recordings.AdvanceStatus(ctx, rec.ID,
		[]model.RecordingStatus{model.StatusProcessing}, model.StatusQueued, repository.RecordingUpdate{})
	assert.Error(t, err)
}

func TestMarkFailedIsTerminal(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	rec.Status = model.StatusProcessing
	require.NoError(t, repos.Recordings.Create(ctx, rec))

	require.NoError(t, repos.Recordings.MarkFailed(ctx, rec.ID, "Could not fetch audio file"))

	got, err := repos.Recordings.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Could not fetch audio file", *got.ErrorMessage)

	err = repos.Recordings.MarkFailed(ctx, rec.ID, "again")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repos.Recordings.Create(ctx, newRecording(owner)))
	}
	require.NoError(t, repos.Recordings.Create(ctx, newRecording(uuid.New())))

	list, err := repos.Recordings.ListByOwner(ctx, owner, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	page, err := repos.Recordings.ListByOwner(ctx, owner, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestTranscriptOnePerRecording(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	require.NoError(t, repos.Recordings.Create(ctx, rec))

	speaker := 0
	tr := &model.Transcript{
		RecordingID:      rec.ID,
		Text:             "hello world",
		Confidence:       0.93,
		LanguageDetected: "en",
		Words: []model.Word{
			{Word: "hello", Start: 0, End: 0.4, Confidence: 0.95, Speaker: &speaker},
			{Word: "world", Start: 0.5, End: 0.9, Confidence: 0.91, Speaker: &speaker},
		},
	}
	require.NoError(t, repos.Transcripts.Create(ctx, tr))

	got, err := repos.Transcripts.GetByRecording(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, "hello world", got.Text)
	require.Len(t, got.Words, 2)
	assert.Equal(t, "world", got.Words[1].Word)
	assert.Empty(t, got.Segments)

	err = repos.Transcripts.Create(ctx, &model.Transcript{RecordingID: rec.ID, Text: "dup"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = repos.Transcripts.GetByID(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTranscriptDeleteFreesRecording(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	require.NoError(t, repos.Recordings.Create(ctx, rec))
	tr := &model.Transcript{RecordingID: rec.ID, Text: "first pass"}
	require.NoError(t, repos.Transcripts.Create(ctx, tr))

	require.NoError(t, repos.Transcripts.Delete(ctx, tr.ID))
	_, err := repos.Transcripts.GetByRecording(ctx, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, repos.Transcripts.Create(ctx, &model.Transcript{RecordingID: rec.ID, Text: "second pass"}))
}

func TestTranslationsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	require.NoError(t, repos.Recordings.Create(ctx, rec))
	tr := &model.Transcript{RecordingID: rec.ID, Text: "hello"}
	require.NoError(t, repos.Transcripts.Create(ctx, tr))

	for i := 0; i < 2; i++ {
		require.NoError(t, repos.Translations.Create(ctx, &model.Translation{
			TranscriptID: tr.ID, TargetLang: "es", Text: "hola", Model: "gpt-4o-mini",
		}))
	}

	list, err := repos.Translations.ListByTranscript(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	rec := newRecording(uuid.New())
	require.NoError(t, repos.Recordings.Create(ctx, rec))
	tr := &model.Transcript{RecordingID: rec.ID, Text: "hello"}
	require.NoError(t, repos.Transcripts.Create(ctx, tr))
	require.NoError(t, repos.Translations.Create(ctx, &model.Translation{
		TranscriptID: tr.ID, TargetLang: "fr", Text: "bonjour", Model: "gpt-4o-mini",
	}))

	require.NoError(t, repos.Recordings.Delete(ctx, rec.ID))

	_, err := repos.Recordings.GetByID(ctx, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = repos.Transcripts.GetByID(ctx, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	list, err := repos.Translations.ListByTranscript(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, apperr.Is(repos.Recordings.Delete(ctx, rec.ID), apperr.KindNotFound))
}

func TestSubscriptionHasActive(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	repos := repository.New(db)

	pro, lapsed := uuid.New(), uuid.New()
	require.NoError(t, repository.SeedSubscription(ctx, db, pro, "price_pro", "trialing"))
	require.NoError(t, repository.SeedSubscription(ctx, db, lapsed, "price_pro", "canceled"))

	ok, err := repos.Subscriptions.HasActive(ctx, pro)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Subscriptions.HasActive(ctx, lapsed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuditRecord(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(testdb.Open(t))

	user, target := uuid.New(), uuid.New()
	entry := &model.AuditEntry{
		UserID:   &user,
		Action:   model.ActionRecordingSubmitted,
		TargetID: &target,
		Meta:     map[string]any{"size_bytes": 512000},
	}
	require.NoError(t, repos.Audit.Record(ctx, entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}
