// Package resume holds the canonical resume document produced from model
// output and consumed by the renderer and the intelligence extractor.
package resume

import "strings"

// PersonalInfo holds contact fields copied verbatim from the source resume.
type PersonalInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// IsEmpty reports whether no contact field is set.
func (p PersonalInfo) IsEmpty() bool {
	return p == PersonalInfo{}
}

type Experience struct {
	Title     string   `json:"title,omitempty"`
	Company   string   `json:"company,omitempty"`
	DateRange string   `json:"dateRange,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
}

type Education struct {
	Degree    string   `json:"degree,omitempty"`
	School    string   `json:"school,omitempty"`
	DateRange string   `json:"dateRange,omitempty"`
	Details   []string `json:"details,omitempty"`
}

// SkillCategory is one named group in a categorized skills section.
type SkillCategory struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// Skills is either a flat list or a set of named categories, never both.
type Skills struct {
	Flat       []string        `json:"flat,omitempty"`
	Categories []SkillCategory `json:"categories,omitempty"`
}

// IsEmpty reports whether no skill is present.
func (s Skills) IsEmpty() bool {
	return len(s.Flat) == 0 && len(s.Categories) == 0
}

// Categorized reports whether the skills are grouped.
func (s Skills) Categorized() bool {
	return len(s.Categories) > 0
}

// All returns every skill in order, flattening categories.
func (s Skills) All() []string {
	if !s.Categorized() {
		return append([]string(nil), s.Flat...)
	}
	var out []string
	for _, c := range s.Categories {
		out = append(out, c.Skills...)
	}
	return out
}

// Document is the canonical resume record. Empty sections stay at their
// zero value and are never rendered.
type Document struct {
	PersonalInfo   PersonalInfo `json:"personalInfo"`
	Summary        string       `json:"summary,omitempty"`
	Experience     []Experience `json:"experience,omitempty"`
	Education      []Education  `json:"education,omitempty"`
	Skills         Skills       `json:"skills"`
	Certifications []string     `json:"certifications,omitempty"`
	// Raw holds the cleaned model text when no section header was found.
	Raw string `json:"raw,omitempty"`
}

// HasSections reports whether at least one structured section is populated.
func (d Document) HasSections() bool {
	return !d.PersonalInfo.IsEmpty() ||
		strings.TrimSpace(d.Summary) != "" ||
		len(d.Experience) > 0 ||
		len(d.Education) > 0 ||
		!d.Skills.IsEmpty() ||
		len(d.Certifications) > 0
}

// IsEmpty reports whether the document has neither sections nor raw text.
func (d Document) IsEmpty() bool {
	return !d.HasSections() && strings.TrimSpace(d.Raw) == ""
}

// DisplayName returns the candidate name or an empty string.
func (d Document) DisplayName() string {
	return strings.TrimSpace(d.PersonalInfo.Name)
}
