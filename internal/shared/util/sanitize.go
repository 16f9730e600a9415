package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLen bounds sanitized names in runes.
const MaxFileNameLen = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes a client-supplied name safe to embed in a storage
// key or a Content-Disposition header. Separators and whitespace become
// underscores, control characters are dropped, and long names are cut
// keeping the extension. Traversal patterns are rejected outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") || !utf8.ValidString(name) {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		case unicode.IsControl(r), r == '"':
			continue
		}
		b.WriteRune(r)
		lastUnderscore = r == '_'
	}
	s := strings.Trim(b.String(), "_")
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}

	if utf8.RuneCountInString(s) > MaxFileNameLen {
		ext := filepath.Ext(s)
		if utf8.RuneCountInString(ext) >= MaxFileNameLen/2 {
			ext = ""
		}
		stem := []rune(strings.TrimSuffix(s, ext))
		s = string(stem[:MaxFileNameLen-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}
