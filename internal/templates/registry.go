// Package templates is the single registry of resume templates. The prompt
// composer, the renderer and pricing all read from it.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultGuidance applies when a template id is not recognized.
const DefaultGuidance = "general ATS compliance"

const defaultAudience = "general hiring managers and applicant tracking systems"

// StandardPriceCents is charged for a free template once the requester's
// free allowance is used up.
const StandardPriceCents int64 = 499

// ErrTemplateNotFound is returned when a template id or its email layout is unknown.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed email/*.html
var emailFS embed.FS

// Template describes one resume template.
type Template struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Premium       bool   `json:"premium"`
	PriceCents    int64  `json:"priceCents"`
	Audience      string `json:"audience"`
	Guidance      string `json:"guidance"`
	EmailSubject  string `json:"-"`
	EmailTemplate string `json:"-"`
	Accent        string `json:"accent"`
}

var builtins = []Template{
	{
		ID:            "ats-optimized",
		Name:          "ATS Optimized",
		Audience:      "applicant tracking systems and high-volume recruiters",
		Guidance:      "Use standard section names, plain formatting and keywords taken from the job description. Avoid tables, columns and graphics.",
		EmailSubject:  "Your ATS-optimized resume is ready",
		EmailTemplate: "classic.html",
		Accent:        "#1f3a5f",
	},
	{
		ID:            "modern-professional",
		Name:          "Modern Professional",
		Audience:      "hiring managers at established companies",
		Guidance:      "Lead with a confident summary, quantify impact in every bullet and keep each role to four or five bullets.",
		EmailSubject:  "Your Modern Professional resume is ready",
		EmailTemplate: "modern.html",
		Accent:        "#2b6cb0",
	},
	{
		ID:            "entry-level",
		Name:          "Entry Level",
		Audience:      "recruiters screening graduates and early-career candidates",
		Guidance:      "Put education before experience when experience is thin, highlight projects, internships and transferable skills.",
		EmailSubject:  "Your Entry Level resume is ready",
		EmailTemplate: "classic.html",
		Accent:        "#2f855a",
	},
	{
		ID:            "executive",
		Name:          "Executive",
		Premium:       true,
		PriceCents:    1499,
		Audience:      "boards, executive search firms and C-level hiring panels",
		Guidance:      "Emphasize strategic leadership, P&L ownership, organizational scale and measurable business outcomes.",
		EmailSubject:  "Your Executive resume is ready",
		EmailTemplate: "executive.html",
		Accent:        "#1a202c",
	},
	{
		ID:            "tech-specialist",
		Name:          "Tech Specialist",
		Premium:       true,
		PriceCents:    999,
		Audience:      "engineering managers and technical recruiters",
		Guidance:      "Group skills by category, name concrete technologies in each bullet and surface system scale, latency and reliability results.",
		EmailSubject:  "Your Tech Specialist resume is ready",
		EmailTemplate: "modern.html",
		Accent:        "#553c9a",
	},
	{
		ID:            "career-change",
		Name:          "Career Change",
		Premium:       true,
		PriceCents:    999,
		Audience:      "hiring managers open to candidates from adjacent fields",
		Guidance:      "Reframe past roles around transferable skills relevant to the target role and open with a summary that explains the transition.",
		EmailSubject:  "Your Career Change resume is ready",
		EmailTemplate: "executive.html",
		Accent:        "#c05621",
	},
}

var byID = func() map[string]Template {
	m := make(map[string]Template, len(builtins))
	for _, t := range builtins {
		m[t.ID] = t
	}
	return m
}()

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup returns the template registered under id.
func Lookup(id string) (Template, bool) {
	t, ok := byID[normalizeID(id)]
	return t, ok
}

// Get is Lookup with a typed error.
func Get(id string) (Template, error) {
	t, ok := Lookup(id)
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return t, nil
}

// MustGet panics when id is not registered.
func MustGet(id string) Template {
	t, err := Get(id)
	if err != nil {
		panic(err)
	}
	return t
}

// All returns the registered templates, free ones first then by id.
func All() []Template {
	out := make([]Template, len(builtins))
	copy(out, builtins)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Premium != out[j].Premium {
			return !out[i].Premium
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AudienceAndGuidance returns the prompt strings for id, falling back to the
// defaults when id is unknown.
func AudienceAndGuidance(id string) (audience, guidance string) {
	t, ok := Lookup(id)
	if !ok {
		return defaultAudience, DefaultGuidance
	}
	return t.Audience, t.Guidance
}

// EmailHTML returns the embedded email layout for template id.
func EmailHTML(id string) (string, error) {
	t, err := Get(id)
	if err != nil {
		return "", err
	}
	return layout(t.EmailTemplate)
}

// FailureHTML returns the layout used to notify a requester of a failed generation.
func FailureHTML() (string, error) {
	return layout("failure.html")
}

func layout(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty layout name", ErrTemplateNotFound)
	}
	data, err := emailFS.ReadFile("email/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: layout %s: %v", ErrTemplateNotFound, name, err)
	}
	return string(data), nil
}

// ListPrice is the undiscounted price of one paid generation with t.
func ListPrice(t Template) int64 {
	if t.PriceCents > 0 {
		return t.PriceCents
	}
	return StandardPriceCents
}

// Price returns the original and discounted price in cents. The discount is
// clamped to [0,100] and the result is rounded half up.
func Price(t Template, discountPercent int) (original, discounted int64) {
	original = ListPrice(t)
	switch {
	case discountPercent < 0:
		discountPercent = 0
	case discountPercent > 100:
		discountPercent = 100
	}
	discounted = (original*int64(100-discountPercent) + 50) / 100
	return original, discounted
}

// Dollars converts cents to a decimal amount for API responses.
func Dollars(cents int64) float64 {
	return float64(cents) / 100.0
}
