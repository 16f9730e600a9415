package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHashUserKey(t *testing.T) {
	id := "jane@x.com"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	if HashUserKey("  Jane@X.com ") != got {
		t.Fatalf("expected case and whitespace insensitive hash")
	}
	if strings.Contains(got, "jane") {
		t.Fatalf("hash leaks the address")
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "resume.pdf", want: "resume.pdf"},
		{in: " dir/resume.pdf ", want: "dir_resume.pdf"},
		{in: `a\b.docx`, want: "a_b.docx"},
		{in: "Jane  Doe\tCV.pdf", want: "Jane_Doe_CV.pdf"},
		{in: "bad\x00\"name\".txt", want: "badname.txt"},
		{in: "Résumé.docx", want: "Résumé.docx"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "///", wantErr: true},
		{in: "\xff\xfe.pdf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 200) + ".pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if n := utf8.RuneCountInString(got); n != MaxFileNameLen {
		t.Fatalf("expected %d runes, got %d", MaxFileNameLen, n)
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("expected .pdf suffix, got %q", got)
	}
}
