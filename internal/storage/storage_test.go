package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	rec := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, owner.String()+"/"+rec.String()+"/talk.wav", ObjectKey(owner, rec, "talk.wav"))
	assert.Equal(t, owner.String()+"/"+rec.String()+"/passwd", ObjectKey(owner, rec, "../../etc/passwd"))
	assert.Equal(t, owner.String()+"/"+rec.String()+"/a.mp3", ObjectKey(owner, rec, `C:\Users\me\a.mp3`))
	assert.Equal(t, owner.String()+"/"+rec.String()+"/audio", ObjectKey(owner, rec, ""))
}

func TestSupabaseStore(t *testing.T) {
	var uploaded []byte
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/audio-uploads/u/r/a.wav":
			assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
			uploaded, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{"Key":"audio-uploads/u/r/a.wav"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/sign/audio-uploads/u/r/a.wav":
			var body map[string]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 3600, body["expiresIn"])
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"signedURL":"/object/sign/audio-uploads/u/r/a.wav?token=abc"}`))
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	store := NewSupabaseStore(SupabaseConfig{URL: srv.URL + "/", Bucket: "audio-uploads", ServiceKey: "service-key"})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u/r/a.wav", bytes.NewReader([]byte("RIFF")), 4, "audio/wav"))
	assert.Equal(t, []byte("RIFF"), uploaded)

	signed, err := store.SignedURL(ctx, "u/r/a.wav", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/audio-uploads/u/r/a.wav?token=abc", signed)

	// missing objects are not an error
	require.NoError(t, store.Delete(ctx, "u/r/a.wav"))
	assert.Equal(t, "/storage/v1/object/audio-uploads/u/r/a.wav", deleted)
}

func TestSupabaseStoreSignFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Object not found"}`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(SupabaseConfig{URL: srv.URL, Bucket: "b", ServiceKey: "k"})
	_, err := store.SignedURL(context.Background(), "missing", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Object not found")
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080"+LocalRoutePrefix, []byte("secret"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u/r/a.wav", strings.NewReader("RIFFdata"), 8, "audio/wav"))
	// keys are never overwritten
	assert.Error(t, store.Put(ctx, "u/r/a.wav", strings.NewReader("x"), 1, "audio/wav"))

	signed, err := store.SignedURL(ctx, "u/r/a.wav", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, LocalRoutePrefix+"/u/r/a.wav", u.Path)

	f, err := store.Open("u/r/a.wav", u.Query().Get("expires"), u.Query().Get("signature"))
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "RIFFdata", string(data))

	_, err = store.Open("u/r/a.wav", u.Query().Get("expires"), "bogus")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = store.Open("u/r/a.wav", u.Query().Get("expires"), u.Query().Get("signature"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	require.NoError(t, store.Delete(ctx, "u/r/a.wav"))
	require.NoError(t, store.Delete(ctx, "u/r/a.wav"))
	_, err = store.SignedURL(ctx, "u/r/a.wav", time.Minute)
	assert.Error(t, err)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://x", []byte("k"))
	require.NoError(t, err)
	assert.Error(t, store.Put(context.Background(), "../escape", strings.NewReader("x"), 1, ""))
}

func TestKeysWithReservedCharactersStayIntact(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	rec := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	key := ObjectKey(owner, rec, "take #2?.wav")
	assert.Equal(t, owner.String()+"/"+rec.String()+"/take #2?.wav", key)

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		paths = append(paths, r.Method+" "+r.URL.Path)
		if strings.Contains(r.URL.Path, "/object/sign/") {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"signedURL":"/object/sign/b/x?token=abc"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(SupabaseConfig{URL: srv.URL, Bucket: "b", ServiceKey: "k"})
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, key, strings.NewReader("RIFF"), 4, "audio/wav"))
	_, err := store.SignedURL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, key))

	assert.Equal(t, []string{
		"POST /storage/v1/object/b/" + key,
		"POST /storage/v1/object/sign/b/" + key,
		"DELETE /storage/v1/object/b/" + key,
	}, paths)

	local, err := NewLocalStore(t.TempDir(), "http://localhost:8080"+LocalRoutePrefix, []byte("secret"))
	require.NoError(t, err)
	require.NoError(t, local.Put(ctx, key, strings.NewReader("RIFFdata"), 8, "audio/wav"))

	signed, err := local.SignedURL(ctx, key, time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, LocalRoutePrefix+"/"+key, u.Path)

	f, err := local.Open(strings.TrimPrefix(u.Path, LocalRoutePrefix+"/"), u.Query().Get("expires"), u.Query().Get("signature"))
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "RIFFdata", string(data))
}
