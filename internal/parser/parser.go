// Package parser turns semi-structured model output into a canonical
// resume document.
package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"resume-optimizer/internal/resume"
)

// Parsed is the result of Parse.
type Parsed struct {
	Document resume.Document
	// Degraded is set when no section header was recognized and the
	// document carries the cleaned text in Raw.
	Degraded bool
	// Sections lists the non-empty sections in order of appearance.
	Sections []Section
	Cleaned  string
}

var sectionOrder = []Section{
	SectionPersonalInfo,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionCertifications,
}

// Parse scans the cleaned model output line by line. A header line opens
// a section; every other line is buffered into the open section. Lines
// before the first header are kept only for the raw fallback.
func Parse(text string) Parsed {
	cleaned := Cleanup(text)
	buffers := make(map[Section][]string)
	var seen []Section
	var current Section
	found := false

	for _, line := range strings.Split(cleaned, "\n") {
		if sec, inline, ok := headerOf(line); ok && !(found && sec == current && inline != "") {
			found = true
			current = sec
			if _, exists := buffers[sec]; !exists {
				seen = append(seen, sec)
				buffers[sec] = nil
			}
			if inline != "" {
				buffers[sec] = append(buffers[sec], inline)
			}
			continue
		}
		if !found {
			continue
		}
		buffers[current] = append(buffers[current], strings.TrimSpace(line))
	}

	if !found {
		return Parsed{
			Document: resume.Document{Raw: cleaned},
			Degraded: true,
			Cleaned:  cleaned,
		}
	}

	var doc resume.Document
	for _, sec := range sectionOrder {
		lines, ok := buffers[sec]
		if !ok {
			continue
		}
		switch sec {
		case SectionPersonalInfo:
			doc.PersonalInfo = parsePersonalInfo(lines)
		case SectionSummary:
			doc.Summary = joinParagraph(lines)
		case SectionExperience:
			doc.Experience = parseExperience(lines)
		case SectionEducation:
			doc.Education = parseEducation(lines)
		case SectionSkills:
			doc.Skills = resume.ParseSkills(contentLines(lines))
		case SectionCertifications:
			doc.Certifications = parseList(lines)
		}
	}

	parsed := Parsed{Document: doc, Cleaned: cleaned}
	for _, sec := range seen {
		if sectionPresent(doc, sec) {
			parsed.Sections = append(parsed.Sections, sec)
		}
	}
	if !doc.HasSections() {
		parsed.Degraded = true
		parsed.Document.Raw = cleaned
	}
	return parsed
}

func sectionPresent(doc resume.Document, sec Section) bool {
	switch sec {
	case SectionPersonalInfo:
		return !doc.PersonalInfo.IsEmpty()
	case SectionSummary:
		return doc.Summary != ""
	case SectionExperience:
		return len(doc.Experience) > 0
	case SectionEducation:
		return len(doc.Education) > 0
	case SectionSkills:
		return !doc.Skills.IsEmpty()
	case SectionCertifications:
		return len(doc.Certifications) > 0
	}
	return false
}

var titleCaser = cases.Title(language.English)

func parsePersonalInfo(lines []string) resume.PersonalInfo {
	var info resume.PersonalInfo
	for _, line := range contentLines(lines) {
		key, val, ok := labelValue(line)
		if !ok {
			if info.Name == "" {
				info.Name = normalizeName(line)
			}
			continue
		}
		if isPlaceholder(val) {
			continue
		}
		switch strings.ToLower(key) {
		case "name", "full name":
			info.Name = normalizeName(val)
		case "email", "e-mail", "email address":
			info.Email = val
		case "phone", "mobile", "telephone", "phone number":
			info.Phone = val
		case "location", "address", "city":
			info.Location = val
		case "linkedin", "linkedin url":
			info.LinkedIn = val
		case "github", "github url":
			info.GitHub = val
		}
	}
	return info
}

// normalizeName title-cases names the model returned in all capitals.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return name
			}
		}
	}
	if !hasLetter {
		return name
	}
	return titleCaser.String(strings.ToLower(name))
}

func joinParagraph(lines []string) string {
	return strings.Join(contentLines(lines), " ")
}

func contentLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" && !isPlaceholder(t) {
			out = append(out, t)
		}
	}
	return out
}

func parseList(lines []string) []string {
	var out []string
	for _, l := range contentLines(lines) {
		if item := resume.TrimBullet(l); item != "" && !isPlaceholder(item) {
			out = append(out, item)
		}
	}
	return out
}
