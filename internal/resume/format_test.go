package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDateRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line      string
		wantRange string
		wantRest  string
	}{
		{line: "2020 - Present", wantRange: "2020 - Present"},
		{line: "Senior Dev - Acme (2018–2021)", wantRange: "2018 - 2021", wantRest: "Senior Dev - Acme"},
		{line: "Engineer | Globex | 2015 to current", wantRange: "2015 - Present", wantRest: "Engineer | Globex"},
		{line: "Senior Dev - Acme", wantRest: "Senior Dev - Acme"},
		{line: "Founded in 1999", wantRest: "Founded in 1999"},
	}
	for _, tt := range tests {
		gotRange, gotRest := ExtractDateRange(tt.line)
		assert.Equal(t, tt.wantRange, gotRange, tt.line)
		assert.Equal(t, tt.wantRest, gotRest, tt.line)
	}
}

func TestYearSpan(t *testing.T) {
	start, end, ok := YearSpan("2020 - Present", 2026)
	assert.True(t, ok)
	assert.Equal(t, 2020, start)
	assert.Equal(t, 2026, end)

	_, _, ok = YearSpan("2021 - 2019", 2026)
	assert.False(t, ok)

	_, _, ok = YearSpan("no dates", 2026)
	assert.False(t, ok)
}

func TestParseSkillsCategorized(t *testing.T) {
	skills := ParseSkills([]string{
		"Languages: Go, Python, SQL",
		"Cloud: AWS; GCP",
		"Kubernetes",
	})
	assert.True(t, skills.Categorized())
	assert.Equal(t, []SkillCategory{
		{Name: "Languages", Skills: []string{"Go", "Python", "SQL"}},
		{Name: "Cloud", Skills: []string{"AWS", "GCP", "Kubernetes"}},
	}, skills.Categories)
	assert.Equal(t, []string{"Go", "Python", "SQL", "AWS", "GCP", "Kubernetes"}, skills.All())
}

func TestParseSkillsFlat(t *testing.T) {
	skills := ParseSkills([]string{"• Go, Python", "- Docker | go"})
	assert.False(t, skills.Categorized())
	assert.Equal(t, []string{"Go", "Python", "Docker"}, skills.Flat)
	assert.True(t, ParseSkills([]string{"  ", ""}).IsEmpty())
}

func TestDocumentHasSections(t *testing.T) {
	assert.False(t, Document{}.HasSections())
	assert.True(t, Document{}.IsEmpty())
	assert.True(t, Document{Summary: "x"}.HasSections())
	assert.False(t, Document{Raw: "text"}.IsEmpty())
	assert.True(t, Document{Skills: Skills{Flat: []string{"Go"}}}.HasSections())
}

func TestBullets(t *testing.T) {
	assert.True(t, IsBullet("• Did things"))
	assert.True(t, IsBullet("  - Did things"))
	assert.False(t, IsBullet("Senior Dev - Acme"))
	assert.Equal(t, "Did things", TrimBullet("* Did things"))
}
