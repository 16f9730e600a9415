package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"resume-optimizer/internal/shared/storage/object"
)

// FilesRoute is the route prefix that serves signed local downloads.
const FilesRoute = "/api/v1/files/"

// Store implements ObjectStore using the local filesystem. Signed URLs point
// at FilesRoute on baseURL and carry an HMAC over key and expiry.
type Store struct {
	baseDir string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// New creates a new local object store rooted at baseDir.
func New(baseDir, baseURL, secret string) *Store {
	return &Store{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage key")
	}

	fullPath := filepath.Join(s.baseDir, clean)
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SaveWithKey writes the reader to disk at a specific storage key. The
// content type is not persisted; downloads derive it from the extension.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, _ string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return 0, fmt.Errorf("invalid storage key")
	}

	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	return written, nil
}

// SignedURL returns an expiring download URL for storageKey.
func (s *Store) SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.ToSlash(filepath.Clean(storageKey))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(clean, expires))
	return s.baseURL + FilesRoute + clean + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *Store) Verify(storageKey, expiresRaw, sig string) error {
	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return object.ErrInvalidSignature
	}
	if s.now().Unix() > expires {
		return object.ErrInvalidSignature
	}
	clean := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(storageKey, "/")))
	want := s.sign(clean, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return object.ErrInvalidSignature
	}
	return nil
}

func (s *Store) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ object.ObjectStore = (*Store)(nil)
