// Package prompt builds the instruction text sent to the language model.
package prompt

import (
	_ "embed"
	"strings"
	"unicode"

	"resume-optimizer/internal/templates"
)

const (
	// ResumeBudget is the character budget for resume text.
	ResumeBudget = 12_000
	// JobDescriptionBudget is the character budget for the job description.
	JobDescriptionBudget = 4_000
	// TruncationMarker is appended to truncated input.
	TruncationMarker = "..."
	// Version identifies the prompt text for job records and logs.
	Version = "generate_v1"
)

//go:embed prompts/generate_v1.txt
var generateV1 string

// Compose returns the full prompt for the given inputs. It is deterministic.
func Compose(resumeText, jobDescriptionText, templateID string) string {
	audience, guidance := templates.AudienceAndGuidance(templateID)
	r := strings.NewReplacer(
		"{{AUDIENCE}}", audience,
		"{{GUIDANCE}}", guidance,
		"{{RESUME}}", Truncate(strings.TrimSpace(resumeText), ResumeBudget),
		"{{JOB_DESCRIPTION}}", Truncate(strings.TrimSpace(jobDescriptionText), JobDescriptionBudget),
	)
	return r.Replace(generateV1)
}

// Truncate shortens text to at most limit runes plus the marker. When a
// whitespace character falls within the last 20% of the budget the cut is
// made there so no word is split.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := runes[:limit]
	floor := limit - limit/5
	for i := len(cut) - 1; i >= floor; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + TruncationMarker
}
