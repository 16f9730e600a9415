package object

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidSignature is returned when a signed URL fails verification.
var ErrInvalidSignature = errors.New("invalid or expired signature")

// ObjectStore holds uploaded originals, extracted text and generated PDFs.
// Callers choose the key; SignedURL hands out time-limited downloads.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}

// Upload stores data under an explicit key and returns the stored path.
func Upload(ctx context.Context, store ObjectStore, data []byte, storageKey, contentType string) (string, error) {
	if store == nil {
		return "", errors.New("object store not configured")
	}
	if _, err := store.SaveWithKey(ctx, storageKey, contentType, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return storageKey, nil
}
