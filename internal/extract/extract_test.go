package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_Docx(t *testing.T) {
	data := buildDocx(t, "Jane Doe", "Senior Engineer")

	text, err := ExtractTextFromBytes(context.Background(), data, mimeDOCX, "resume.docx")
	if err != nil {
		t.Fatalf("extract docx: %v", err)
	}
	if text != "Jane Doe\nSenior Engineer" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, "Jane Doe")

	if _, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "test.docx"); err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("\xef\xbb\xbfJane\r\nEngineer"), "", "resume.txt")
	if err != nil {
		t.Fatalf("extract txt: %v", err)
	}
	if text != "Jane\nEngineer" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_RTF(t *testing.T) {
	src := `{\rtf1\ansi{\fonttbl{\f0 Arial;}}{\colortbl;\red0\green0\blue0;}\f0\fs24 Jane Doe\par Caf\'e9 \b lead\b0\par {\*\generator Writer;}R\u233?sum\u233?}`

	text, err := ExtractTextFromBytes(context.Background(), []byte(src), "application/rtf", "resume.rtf")
	if err != nil {
		t.Fatalf("extract rtf: %v", err)
	}
	want := "Jane Doe\nCafé lead\nRésumé"
	if text != want {
		t.Fatalf("unexpected text %q want %q", text, want)
	}
}

func TestExtractTextFromBytes_DocUnsupported(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte{0xd0, 0xcf, 0x11, 0xe0}, "application/msword", "resume.doc")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextFromBytes_EmptyText(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("   \n"), "text/plain", "blank.txt")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[key] = data
	return int64(len(data)), nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "/files/" + key, nil
}

func TestExtractTextPersistsDerivedCopy(t *testing.T) {
	store := &memStore{objects: map[string][]byte{"uploads/a/resume.txt": []byte("Jane Doe")}}

	text, err := ExtractText(context.Background(), store, "uploads/a/resume.txt", "text/plain", "resume.txt")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "Jane Doe" {
		t.Fatalf("unexpected text %q", text)
	}
	if got := string(store.objects["uploads/a/resume.txt.extracted.txt"]); got != "Jane Doe" {
		t.Fatalf("expected derived copy, got %q", got)
	}
}

func TestDocxTextKeepsOnlyRunText(t *testing.T) {
	raw := []byte(`<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>` +
		`<w:p><w:r><w:instrText>HYPERLINK "x"</w:instrText><w:t>site</w:t></w:r></w:p>` +
		`</w:body></w:document>`)

	if got := docxText(raw); got != "Skills:\tGo\nsite" {
		t.Fatalf("unexpected text %q", got)
	}
}
