package submission

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/repository/testdb"
	"github.com/vcenk/say-it-translated/internal/storage/storagetest"
)

const testCeiling = 600 * 1024

// wavBytes returns a PCM WAV file of exactly size bytes
func wavBytes(size int) []byte {
	buf := make([]byte, size)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size-8))
	copy(buf[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], 16000)
	binary.LittleEndian.PutUint32(buf[28:32], 32000)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(size-44))
	return buf
}

type fixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	store *storagetest.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	repos := repository.New(db)
	store := storagetest.New(t)
	svc := NewService(Limits{MaxBytes: testCeiling, ProMaxBytes: 2 * testCeiling},
		repos.Recordings, repos.Subscriptions, repos.Audit, store, zerolog.Nop())
	return &fixture{db: db, repos: repos, store: store, svc: svc}
}

func (f *fixture) count(t *testing.T, table string) int64 {
	var n int64
	require.NoError(t, f.db.Table(table).Count(&n).Error)
	return n
}

func asset(owner uuid.UUID, declared string, data []byte) Asset {
	return Asset{
		OwnerID:      owner,
		Filename:     "meeting.wav",
		DeclaredType: declared,
		Size:         int64(len(data)),
		Body:         bytes.NewReader(data),
	}
}

func TestSubmitQueuesRecording(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	data := wavBytes(500 * 1024)

	rec, err := f.svc.Submit(context.Background(), asset(owner, "audio/wav", data))
	require.NoError(t, err)

	assert.Equal(t, model.StatusQueued, rec.Status)
	assert.Equal(t, owner.String()+"/"+rec.ID.String()+"/meeting.wav", rec.StoragePath)

	stored, err := f.repos.Recordings.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, stored.Status)
	assert.Equal(t, rec.StoragePath, stored.StoragePath)
	assert.Equal(t, "audio/wav", stored.MimeType)

	obj, ok := f.store.Object(rec.StoragePath)
	require.True(t, ok)
	assert.Equal(t, data, obj)
	assert.Equal(t, int64(1), f.count(t, "recordings"))
	assert.Equal(t, int64(1), f.count(t, "audit_log"))
}

func TestSubmitCeilingBoundary(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	_, err := f.svc.Submit(context.Background(), asset(owner, "audio/wav", wavBytes(testCeiling)))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), asset(owner, "audio/wav", wavBytes(testCeiling+1)))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	assert.Equal(t, int64(1), f.count(t, "recordings"))
	assert.Equal(t, 1, f.store.Len())
}

func TestSubmitRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), asset(uuid.New(), "video/quicktime", wavBytes(2048)))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	// octet-stream with non-audio content is sniffed and rejected
	_, err = f.svc.Submit(context.Background(), asset(uuid.New(), "application/octet-stream", []byte("%PDF-1.4 not audio")))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	assert.Zero(t, f.count(t, "recordings"))
	assert.Zero(t, f.store.Len())
}

func TestSubmitSniffsOctetStream(t *testing.T) {
	f := newFixture(t)
	data := wavBytes(4096)

	rec, err := f.svc.Submit(context.Background(), asset(uuid.New(), "application/octet-stream", data))
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", rec.MimeType)

	// the sniffed prefix must still reach storage
	obj, ok := f.store.Object(rec.StoragePath)
	require.True(t, ok)
	assert.Equal(t, data, obj)
}

func TestSubmitStripsMIMEParameters(t *testing.T) {
	f := newFixture(t)
	a := asset(uuid.New(), "audio/webm;codecs=opus", []byte("webm-bytes"))
	a.Source = model.SourceRecording
	a.Filename = "recording-1.webm"
	dur := 12.5
	a.DurationSec = &dur

	rec, err := f.svc.Submit(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", rec.MimeType)
	assert.Equal(t, model.SourceRecording, rec.Source)
	require.NotNil(t, rec.DurationSec)
	assert.InDelta(t, 12.5, *rec.DurationSec, 1e-9)
}

func TestSubmitProCeiling(t *testing.T) {
	f := newFixture(t)
	pro := uuid.New()
	require.NoError(t, repository.SeedSubscription(context.Background(), f.db, pro, "price_pro", "active"))

	assert.Equal(t, int64(2*testCeiling), f.svc.CeilingFor(context.Background(), pro))
	assert.Equal(t, int64(testCeiling), f.svc.CeilingFor(context.Background(), uuid.New()))

	_, err := f.svc.Submit(context.Background(), asset(pro, "audio/wav", wavBytes(testCeiling+1)))
	require.NoError(t, err)
}

func TestSubmitStorageFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.store.FailPut = errors.New("bucket unavailable")

	_, err := f.svc.Submit(context.Background(), asset(uuid.New(), "audio/wav", wavBytes(2048)))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	var statuses []string
	require.NoError(t, f.db.Table("recordings").Pluck("status", &statuses).Error)
	assert.Equal(t, []string{string(model.StatusFailed)}, statuses)
	assert.Zero(t, f.store.Len())
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	rec, err := f.svc.Submit(context.Background(), asset(owner, "audio/wav", wavBytes(2048)))
	require.NoError(t, err)

	err = f.svc.Remove(context.Background(), uuid.New(), rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.svc.Remove(context.Background(), owner, rec.ID))
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.count(t, "recordings"))
}

func TestSniffMIME(t *testing.T) {
	got, ok := sniffMIME(wavBytes(128))
	require.True(t, ok)
	assert.Equal(t, "audio/wav", got)

	_, ok = sniffMIME([]byte("plain text"))
	assert.False(t, ok)
}
