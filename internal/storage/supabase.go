package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseConfig holds Supabase Storage settings
type SupabaseConfig struct {
	// URL is the project URL (e.g. https://xyz.supabase.co)
	URL    string
	Bucket string
	// ServiceKey is the service-role key sent as Bearer token
	ServiceKey string
}

// SupabaseStore talks to the Supabase Storage REST API
type SupabaseStore struct {
	baseURL string
	bucket  string
	client  *resty.Client
}

func NewSupabaseStore(cfg SupabaseConfig) *SupabaseStore {
	base := strings.TrimRight(cfg.URL, "/") + "/storage/v1"
	client := resty.New().
		SetTimeout(5*time.Minute).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("apikey", cfg.ServiceKey)
	return &SupabaseStore{baseURL: base, bucket: cfg.Bucket, client: client}
}

func (s *SupabaseStore) objectURL(kind, key string) string {
	if kind == "" {
		return fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, escapeKey(key))
	}
	return fmt.Sprintf("%s/object/%s/%s/%s", s.baseURL, kind, s.bucket, escapeKey(key))
}

func (s *SupabaseStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetContentLength(true).
		SetBody(io.LimitReader(body, size)).
		Post(s.objectURL("", key))
	if err != nil {
		return fmt.Errorf("storage: supabase upload: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("storage: supabase upload failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *SupabaseStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	var result struct {
		SignedURL string `json:"signedURL"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"expiresIn": int(ttl.Seconds())}).
		SetResult(&result).
		Post(s.objectURL("sign", key))
	if err != nil {
		return "", fmt.Errorf("storage: supabase sign request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("storage: supabase sign failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	if result.SignedURL == "" {
		return "", fmt.Errorf("storage: supabase sign returned empty URL")
	}

	// Supabase answers with a path relative to /storage/v1
	if !strings.HasPrefix(result.SignedURL, "http") {
		return s.baseURL + result.SignedURL, nil
	}
	return result.SignedURL, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Delete(s.objectURL("", key))
	if err != nil {
		return fmt.Errorf("storage: supabase delete: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("storage: supabase delete failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

var _ ObjectStore = (*SupabaseStore)(nil)
