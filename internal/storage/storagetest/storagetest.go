// Package storagetest provides an in-memory ObjectStore whose signed URLs are
// served by an httptest server.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vcenk/say-it-translated/internal/storage"
)

// Store is a fake bucket. Set FailPut to make uploads fail.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	tokens  map[string]string
	srv     *httptest.Server

	FailPut error
}

func New(t testing.TB) *Store {
	t.Helper()
	s := &Store{objects: map[string][]byte{}, tokens: map[string]string{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Store) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/object/")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[r.URL.Query().Get("token")] != key {
		http.Error(w, `{"error":"InvalidSignature"}`, http.StatusBadRequest)
		return
	}
	data, ok := s.objects[key]
	if !ok {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	w.Write(data)
}

func (s *Store) Put(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	if s.FailPut != nil {
		return s.FailPut
	}
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return fmt.Errorf("object %s already exists", key)
	}
	s.objects[key] = data
	return nil
}

// SignedURL signs any key, present or not, like a real bucket does.
func (s *Store) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = key
	s.mu.Unlock()
	u := url.URL{Path: "/object/" + key, RawQuery: url.Values{"token": {token}}.Encode()}
	return s.srv.URL + u.String(), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Object returns a stored object
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return bytes.Clone(data), ok
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var _ storage.ObjectStore = (*Store)(nil)
