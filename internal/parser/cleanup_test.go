package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanupRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leakage lines",
			in:   "Here is the tailored resume:\nSUMMARY:\nEngineer\nBased on the provided resume, I focused on impact.\nI hope this helps!",
			want: "SUMMARY:\nEngineer",
		},
		{
			name: "bracket only lines",
			in:   "SUMMARY:\n[Insert summary]\nEngineer\n<phone>",
			want: "SUMMARY:\nEngineer",
		},
		{
			name: "placeholder label values",
			in:   "PERSONAL INFO:\nName: Jane\nGitHub: N/A\nLinkedIn: [none]",
			want: "PERSONAL INFO:\nName: Jane",
		},
		{
			name: "empty trailing section",
			in:   "SUMMARY:\nEngineer\n\nCERTIFICATIONS:\n[none]",
			want: "SUMMARY:\nEngineer",
		},
		{
			name: "empty middle section",
			in:   "SUMMARY:\nEngineer\nEDUCATION:\nNone\nSKILLS:\nGo",
			want: "SUMMARY:\nEngineer\nSKILLS:\nGo",
		},
		{
			name: "collapse blank runs",
			in:   "SUMMARY:\nEngineer\n\n\n\n\nSKILLS:\nGo\n\nSQL",
			want: "SUMMARY:\nEngineer\n\nSKILLS:\nGo\n\nSQL",
		},
		{
			name: "code fences and crlf",
			in:   "```text\r\nSUMMARY:\r\nEngineer   \r\n```",
			want: "SUMMARY:\nEngineer",
		},
		{
			name: "urls survive",
			in:   "PERSONAL INFO:\nhttps://example.com/jane",
			want: "PERSONAL INFO:\nhttps://example.com/jane",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Cleanup(tt.in))
		})
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	inputs := []string{
		fullOutput,
		"SUMMARY:\n\n\n\nEngineer\n\n\n\n\nEXPERIENCE:\n[none]\n\n\nSKILLS: N/A",
		"Note: this is a draft\n\n\n\n",
		"EDUCATION:\n\n\n\nCERTIFICATIONS:\n\n\n\n\nSUMMARY:\nx",
	}
	for _, in := range inputs {
		once := Cleanup(in)
		assert.Equal(t, once, Cleanup(once), in)
	}
}

func TestHeaderOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		sec    Section
		inline string
		ok     bool
	}{
		{line: "SUMMARY:", sec: SectionSummary, ok: true},
		{line: "summary", sec: SectionSummary, ok: true},
		{line: "## Work Experience", sec: SectionExperience, ok: true},
		{line: "**Professional Summary:** Driven", sec: SectionSummary, inline: "Driven", ok: true},
		{line: "Contact Information:", sec: SectionPersonalInfo, ok: true},
		{line: "CERTIFICATIONS: [none]", sec: SectionCertifications, inline: "[none]", ok: true},
		{line: "Summary of results", ok: false},
		{line: "Email: jane@x.com", ok: false},
	}
	for _, tt := range tests {
		sec, inline, ok := headerOf(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.sec, sec, tt.line)
		assert.Equal(t, tt.inline, inline, tt.line)
	}
}
