package local

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"resume-optimizer/internal/shared/storage/object"
)

func TestSaveWithKeyAndOpen(t *testing.T) {
	store := New(t.TempDir(), "http://localhost:8080", "secret")
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "generated/job-1/resume.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-1.3"))); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	rc, err := store.Open(ctx, "generated/job-1/resume.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.3" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveWithKeyRejectsTraversal(t *testing.T) {
	store := New(t.TempDir(), "http://localhost:8080", "secret")
	if _, err := store.SaveWithKey(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal error")
	}
}

func TestSignedURLVerifies(t *testing.T) {
	store := New(t.TempDir(), "http://localhost:8080/", "secret")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	raw, err := store.SignedURL(context.Background(), "generated/job-1/resume.pdf", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasPrefix(u.Path, FilesRoute) {
		t.Fatalf("expected files route, got %s", u.Path)
	}
	key := strings.TrimPrefix(u.Path, FilesRoute)
	if err := store.Verify(key, u.Query().Get("expires"), u.Query().Get("sig")); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := store.Verify(key, u.Query().Get("expires"), "bad"); err != object.ErrInvalidSignature {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	store.now = func() time.Time { return fixed.Add(2 * time.Hour) }
	if err := store.Verify(key, u.Query().Get("expires"), u.Query().Get("sig")); err != object.ErrInvalidSignature {
		t.Fatalf("expected expiry rejection, got %v", err)
	}
}
