package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	leakagePattern = regexp.MustCompile(`(?i)^(?:here(?:'s|’s| is| are)\b|based on (?:the|your) (?:provided|given|original|attached)\b|below is\b|i(?:'ve|’ve| have) (?:tailored|optimized|optimised|rewritten|updated|revised|created)\b|note:|please note\b|let me know\b|i hope\b|feel free\b|as requested\b|this (?:resume|version) (?:has been|is)\b|sure[,!.]|certainly[,!.])`)
	bracketLine    = regexp.MustCompile(`^(?:\[[^\]]*\]|<[^<>]*>)$`)
	fenceLine      = regexp.MustCompile("^(?:```|~~~)[A-Za-z]*$")
)

var placeholderValues = map[string]struct{}{
	"":               {},
	"none":           {},
	"none.":          {},
	"n/a":            {},
	"na":             {},
	"not applicable": {},
	"not provided":   {},
	"not specified":  {},
	"null":           {},
	"-":              {},
}

// isPlaceholder reports whether v carries no real content.
func isPlaceholder(v string) bool {
	t := strings.TrimSpace(v)
	if bracketLine.MatchString(t) {
		return true
	}
	t = strings.Trim(t, "*_ ")
	_, ok := placeholderValues[strings.ToLower(t)]
	return ok
}

// Cleanup applies the output repair rules to raw model text: leakage
// lines, bracket-only lines and placeholder values are removed, empty
// sections are dropped, runs of three or more blank lines become one and
// the result is trimmed. Cleanup(Cleanup(x)) == Cleanup(x).
func Cleanup(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimRightFunc(raw, unicode.IsSpace)
		t := strings.TrimSpace(line)
		if t == "" {
			out = append(out, "")
			continue
		}
		if fenceLine.MatchString(t) || leakagePattern.MatchString(t) || isPlaceholder(t) {
			continue
		}
		if sec, inline, ok := headerOf(t); ok {
			if inline != "" && isPlaceholder(inline) {
				line = string(sec) + ":"
			}
			out = append(out, line)
			continue
		}
		if _, val, ok := labelValue(t); ok && isPlaceholder(val) {
			continue
		}
		out = append(out, line)
	}

	out = dropEmptySections(out)
	out = collapseBlankRuns(out)
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// labelValue splits "Label: value" lines with a short label.
func labelValue(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx > 30 {
		return "", "", false
	}
	label = strings.TrimSpace(line[:idx])
	if label == "" || len(strings.Fields(label)) > 4 {
		return "", "", false
	}
	rest := line[idx+1:]
	if strings.HasPrefix(rest, "//") {
		return "", "", false
	}
	return label, strings.TrimSpace(rest), true
}

func dropEmptySections(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if sec, inline, ok := headerOf(line); ok && inline == "" {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j == len(lines) {
				continue
			}
			// "SKILLS:" followed by "Technical Skills: Go" is content.
			if nextSec, nextInline, next := headerOf(lines[j]); next && (nextSec != sec || nextInline == "") {
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

func collapseBlankRuns(lines []string) []string {
	out := make([]string, 0, len(lines))
	run := 0
	flush := func() {
		if run >= 3 {
			run = 1
		}
		for k := 0; k < run; k++ {
			out = append(out, "")
		}
		run = 0
	}
	for _, line := range lines {
		if line == "" {
			run++
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return out
}
