package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalRoutePrefix is where the API serves signed local objects
const LocalRoutePrefix = "/storage/v1/local"

// ErrInvalidSignature is returned by Open for bad or expired links
var ErrInvalidSignature = errors.New("storage: invalid or expired signature")

// LocalStore keeps objects on disk for development. Signed URLs point at the
// API's own LocalRoutePrefix handler and carry an HMAC over key and expiry.
type LocalStore struct {
	root    string
	baseURL string
	key     []byte
	now     func() time.Time
}

func NewLocalStore(root, baseURL string, signingKey []byte) (*LocalStore, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("storage: local store needs a signing key")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     signingKey,
		now:     time.Now,
	}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(body, size))
	if err == nil && n != size {
		err = fmt.Errorf("short write: %d of %d bytes", n, size)
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *LocalStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *LocalStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("storage: object not found: %s", key)
	}

	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.sign(key, expires))
	return fmt.Sprintf("%s/%s?%s", s.baseURL, escapeKey(key), q.Encode()), nil
}

// Open verifies a signed link and opens the object for reading
func (s *LocalStore) Open(key, expires, signature string) (*os.File, error) {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || s.now().Unix() > exp {
		return nil, ErrInvalidSignature
	}
	if !hmac.Equal([]byte(s.sign(key, exp)), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: local delete: %w", err)
	}
	return nil
}

var _ ObjectStore = (*LocalStore)(nil)
