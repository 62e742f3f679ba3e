// Package storage stores audio objects and issues time-limited read URLs for them.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vcenk/say-it-translated/internal/config"
)

// ObjectStore is the private audio bucket
type ObjectStore interface {
	// Put writes size bytes from body under key. Existing keys are not overwritten.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// SignedURL returns a URL that allows an unauthenticated GET of key until ttl elapses.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds the storage path "{owner}/{recording}/{filename}".
// The filename is reduced to its base name so client input cannot escape the prefix.
func ObjectKey(ownerID, recordingID uuid.UUID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		name = "audio"
	}
	return fmt.Sprintf("%s/%s/%s", ownerID, recordingID, name)
}

// escapeKey escapes each segment of key for use in a URL path
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// NewFromConfig builds the store selected by STORAGE_BACKEND
func NewFromConfig(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageSupabase:
		return NewSupabaseStore(SupabaseConfig{
			URL:        cfg.SupabaseURL,
			Bucket:     cfg.StorageBucket,
			ServiceKey: cfg.SupabaseServiceRoleKey,
		}), nil
	case config.StorageS3:
		return NewS3Store(ctx, S3Config{
			Bucket:       cfg.StorageBucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKeyID,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	case config.StorageLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL+LocalRoutePrefix, []byte(cfg.LocalSignKey))
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
