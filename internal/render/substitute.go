package render

import (
	"html"
	"regexp"
	"strings"
	"time"

	"resume-optimizer/internal/resume"
	"resume-optimizer/internal/templates"
)

const (
	ifOpen  = "{{#if "
	ifClose = "{{/if}}"
	ifElse  = "{{else}}"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Z0-9_]+)\s*\}\}`)
	leftoverMarkers    = regexp.MustCompile(`\{\{#if\s+[A-Z0-9_]*\s*\}\}|\{\{else\}\}|\{\{/if\}\}`)
)

// Substitute resolves {{#if VAR}}...{{else}}...{{/if}} blocks innermost
// first, strips unmatched markers and replaces {{VAR}} placeholders.
// A condition holds when the value is non-empty after trimming. Values are
// HTML-escaped unless the name ends in _HTML. Unknown placeholders become
// empty.
func Substitute(tmpl string, vars map[string]string) string {
	out := tmpl
	for {
		closeIdx := strings.Index(out, ifClose)
		if closeIdx < 0 {
			break
		}
		openIdx := strings.LastIndex(out[:closeIdx], ifOpen)
		if openIdx < 0 {
			// Orphan close marker; drop it and keep going.
			out = out[:closeIdx] + out[closeIdx+len(ifClose):]
			continue
		}
		tagEnd := strings.Index(out[openIdx:], "}}")
		if tagEnd < 0 || openIdx+tagEnd > closeIdx {
			out = out[:closeIdx] + out[closeIdx+len(ifClose):]
			continue
		}
		name := strings.TrimSpace(out[openIdx+len(ifOpen) : openIdx+tagEnd])
		body := out[openIdx+tagEnd+2 : closeIdx]

		thenPart, elsePart := body, ""
		if idx := strings.Index(body, ifElse); idx >= 0 {
			thenPart, elsePart = body[:idx], body[idx+len(ifElse):]
		}
		chosen := elsePart
		if strings.TrimSpace(vars[name]) != "" {
			chosen = thenPart
		}
		out = out[:openIdx] + chosen + out[closeIdx+len(ifClose):]
	}

	out = leftoverMarkers.ReplaceAllString(out, "")
	return placeholderPattern.ReplaceAllStringFunc(out, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		val := vars[name]
		if strings.HasSuffix(name, "_HTML") {
			return val
		}
		return html.EscapeString(val)
	})
}

// EmailVars builds the placeholder set for doc rendered with tpl.
func EmailVars(doc resume.Document, tpl templates.Template, now time.Time) map[string]string {
	p := doc.PersonalInfo
	vars := map[string]string{
		"FULL_NAME":           p.Name,
		"EMAIL":               p.Email,
		"PHONE":               p.Phone,
		"LOCATION":            p.Location,
		"LINKEDIN":            p.LinkedIn,
		"GITHUB":              p.GitHub,
		"SUMMARY":             doc.Summary,
		"EXPERIENCE_HTML":     experienceHTML(doc.Experience),
		"EDUCATION_HTML":      educationHTML(doc.Education),
		"SKILLS_HTML":         skillsHTML(doc.Skills),
		"CERTIFICATIONS_HTML": listHTML(doc.Certifications),
		"RAW_CONTENT_HTML":    "",
		"TEMPLATE_NAME":       tpl.Name,
		"ACCENT":              tpl.Accent,
		"DOWNLOAD_URL":        "",
		"GENERATED_DATE":      now.Format("January 2, 2006"),
	}
	if !doc.HasSections() {
		vars["RAW_CONTENT_HTML"] = rawHTML(doc.Raw)
	}
	return vars
}

func experienceHTML(items []resume.Experience) string {
	var b strings.Builder
	for _, e := range items {
		b.WriteString(`<div style="margin-bottom: 12px;">`)
		heading := e.Title
		if e.Company != "" {
			if heading != "" {
				heading += " - "
			}
			heading += e.Company
		}
		b.WriteString("<strong>" + html.EscapeString(heading) + "</strong>")
		if e.DateRange != "" {
			b.WriteString(` <span style="color: #666;">` + html.EscapeString(e.DateRange) + "</span>")
		}
		b.WriteString(listHTML(e.Bullets))
		b.WriteString("</div>")
	}
	return b.String()
}

func educationHTML(items []resume.Education) string {
	var b strings.Builder
	for _, e := range items {
		b.WriteString(`<div style="margin-bottom: 8px;">`)
		heading := e.Degree
		if e.School != "" {
			if heading != "" {
				heading += ", "
			}
			heading += e.School
		}
		b.WriteString("<strong>" + html.EscapeString(heading) + "</strong>")
		if e.DateRange != "" {
			b.WriteString(` <span style="color: #666;">` + html.EscapeString(e.DateRange) + "</span>")
		}
		for _, d := range e.Details {
			b.WriteString("<div>" + html.EscapeString(d) + "</div>")
		}
		b.WriteString("</div>")
	}
	return b.String()
}

func skillsHTML(s resume.Skills) string {
	if s.IsEmpty() {
		return ""
	}
	if !s.Categorized() {
		return "<p>" + html.EscapeString(strings.Join(s.Flat, ", ")) + "</p>"
	}
	var b strings.Builder
	for _, c := range s.Categories {
		b.WriteString("<p><strong>" + html.EscapeString(c.Name) + ":</strong> " + html.EscapeString(strings.Join(c.Skills, ", ")) + "</p>")
	}
	return b.String()
}

func listHTML(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, it := range items {
		b.WriteString("<li>" + html.EscapeString(it) + "</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func rawHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(raw, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(lines[i]))
		}
		b.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>")
	}
	return b.String()
}
