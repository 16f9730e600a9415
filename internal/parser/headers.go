package parser

import "strings"

// Section names a canonical resume section.
type Section string

const (
	SectionPersonalInfo   Section = "PERSONAL INFO"
	SectionSummary        Section = "SUMMARY"
	SectionExperience     Section = "EXPERIENCE"
	SectionEducation      Section = "EDUCATION"
	SectionSkills         Section = "SKILLS"
	SectionCertifications Section = "CERTIFICATIONS"
)

var headerAliases = map[string]Section{
	"PERSONAL INFO":             SectionPersonalInfo,
	"PERSONAL INFORMATION":      SectionPersonalInfo,
	"CONTACT":                   SectionPersonalInfo,
	"CONTACT INFO":              SectionPersonalInfo,
	"CONTACT INFORMATION":       SectionPersonalInfo,
	"SUMMARY":                   SectionSummary,
	"PROFESSIONAL SUMMARY":      SectionSummary,
	"EXPERIENCE":                SectionExperience,
	"WORK EXPERIENCE":           SectionExperience,
	"PROFESSIONAL EXPERIENCE":   SectionExperience,
	"EDUCATION":                 SectionEducation,
	"SKILLS":                    SectionSkills,
	"TECHNICAL SKILLS":          SectionSkills,
	"CORE COMPETENCIES":         SectionSkills,
	"CERTIFICATIONS":            SectionCertifications,
	"CERTIFICATIONS & LICENSES": SectionCertifications,
	"LICENSES & CERTIFICATIONS": SectionCertifications,
}

// headerOf reports whether line opens a section. inline carries any text
// after the header colon. Without a colon the line must be exactly a
// header name.
func headerOf(line string) (sec Section, inline string, ok bool) {
	t := undecorate(line)
	if t == "" {
		return "", "", false
	}
	name := t
	if idx := strings.Index(t, ":"); idx >= 0 {
		name = t[:idx]
		inline = strings.TrimSpace(strings.Trim(strings.TrimSpace(t[idx+1:]), "*_"))
	}
	key := strings.ToUpper(strings.Join(strings.Fields(strings.Trim(name, "*_ ")), " "))
	sec, ok = headerAliases[key]
	if !ok {
		return "", "", false
	}
	return sec, inline, true
}

func undecorate(line string) string {
	t := strings.TrimSpace(line)
	t = strings.TrimLeft(t, "#")
	t = strings.TrimSpace(t)
	if strings.HasPrefix(t, "**") || strings.HasPrefix(t, "__") {
		t = t[2:]
	}
	return strings.TrimSpace(t)
}
