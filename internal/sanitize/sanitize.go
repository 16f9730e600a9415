package sanitize

import (
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Kind selects the size constraints applied by ValidateContent.
type Kind string

const (
	KindResume         Kind = "resume"
	KindJobDescription Kind = "jobDescription"
)

type limits struct {
	minChars int
	maxBytes int
}

var kindLimits = map[Kind]limits{
	KindResume:         {minChars: 50, maxBytes: 100_000},
	KindJobDescription: {minChars: 30, maxBytes: 30_000},
}

// AllowedExtensions lists the accepted upload extensions.
var AllowedExtensions = []string{"pdf", "docx", "doc", "txt", "rtf"}

// markup strips every tag. script, iframe and object elements lose their
// content too, and attributes (on* handlers, href/src URIs) go with their tag.
var markup = bluemonday.StrictPolicy()

var (
	scriptScheme   = regexp.MustCompile(`(?i)(java|vb)script\s*:`)
	htmlDataScheme = regexp.MustCompile(`(?i)data\s*:\s*text/html[^,\s]*,?`)
)

// maxPasses bounds the strip loop. Input still changing after that many
// passes is nested on purpose and is dropped entirely.
const maxPasses = 8

// Sanitize removes markup and script URI schemes from user text and
// normalizes line endings. Passes repeat until the text stops changing, so
// a removal can never splice a new scheme or tag together and
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string) string {
	s := raw
	for i := 0; i < maxPasses; i++ {
		next := strip(s)
		if next == s {
			return s
		}
		s = next
	}
	return ""
}

func strip(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	// The policy escapes the text it keeps; the result is plain text, not
	// HTML, so entities are decoded back. Anything decoded into markup is
	// caught by the next pass.
	s = html.UnescapeString(markup.Sanitize(s))
	s = scriptScheme.ReplaceAllString(s, "")
	s = htmlDataScheme.ReplaceAllString(s, "")
	return s
}

// ValidateContent enforces the size budget for kind. Lengths are measured
// after sanitization, so text that was only markup is reported separately.
func ValidateContent(content string, kind Kind) error {
	lim, ok := kindLimits[kind]
	if !ok {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	field := string(kind)
	if !utf8.ValidString(content) {
		return reject(field, ReasonInvalidUTF8, "")
	}
	if len(content) > lim.maxBytes {
		return reject(field, ReasonTooLong, fmt.Sprintf("max %d bytes", lim.maxBytes))
	}

	clean := strings.TrimSpace(Sanitize(content))
	if clean == "" && strings.TrimSpace(content) != "" {
		return reject(field, ReasonDangerousContentOnly, "")
	}
	if utf8.RuneCountInString(clean) < lim.minChars {
		return reject(field, ReasonTooShort, fmt.Sprintf("min %d characters", lim.minChars))
	}
	return nil
}

// ValidateFileName checks the declared upload name against the extension
// allow-list.
func ValidateFileName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return reject("fileName", ReasonInvalidFileName, "empty")
	}
	if strings.Contains(trimmed, "..") || strings.ContainsAny(trimmed, "/\\\x00") {
		return reject("fileName", ReasonInvalidFileName, "path characters")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(trimmed), "."))
	if ext == "" {
		return reject("fileName", ReasonUnsupportedExtension, "missing extension")
	}
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return reject("fileName", ReasonUnsupportedExtension, ext)
}

// Validate checks resume content together with its declared file name.
func Validate(content, declaredFileName string) error {
	if err := ValidateFileName(declaredFileName); err != nil {
		return err
	}
	return ValidateContent(content, KindResume)
}
