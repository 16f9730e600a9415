// Package render projects a canonical resume document into a paginated
// PDF and an HTML email body.
package render

import (
	"fmt"
	"strings"
	"time"

	"resume-optimizer/internal/resume"
	"resume-optimizer/internal/templates"
)

// Format selects the output projection.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatEmail Format = "email"
)

// Output is a rendered deliverable.
type Output struct {
	Format      Format
	ContentType string
	Data        []byte
}

// Service renders documents. Now is used for the generation date.
type Service struct {
	Now func() time.Time
}

// NewService returns a Service using the wall clock.
func NewService() *Service {
	return &Service{Now: time.Now}
}

func (s *Service) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Render produces format for doc using templateID. An unknown template is
// an error; no other template is substituted.
func (s *Service) Render(doc resume.Document, templateID string, format Format) (Output, error) {
	switch format {
	case FormatPDF:
		data, err := s.RenderPDF(doc, templateID)
		if err != nil {
			return Output{}, err
		}
		return Output{Format: format, ContentType: "application/pdf", Data: data}, nil
	case FormatEmail:
		html, err := s.RenderEmail(doc, templateID, nil)
		if err != nil {
			return Output{}, err
		}
		return Output{Format: format, ContentType: "text/html; charset=utf-8", Data: []byte(html)}, nil
	default:
		return Output{}, &RenderError{TemplateID: templateID, Format: format, Err: fmt.Errorf("unsupported format")}
	}
}

// RenderEmail fills the template's email layout. extra overrides or adds
// variables such as DOWNLOAD_URL.
func (s *Service) RenderEmail(doc resume.Document, templateID string, extra map[string]string) (string, error) {
	tpl, err := templates.Get(templateID)
	if err != nil {
		return "", &RenderError{TemplateID: templateID, Format: FormatEmail, Err: err}
	}
	layout, err := templates.EmailHTML(tpl.ID)
	if err != nil {
		return "", &RenderError{TemplateID: templateID, Format: FormatEmail, Err: err}
	}
	vars := EmailVars(doc, tpl, s.now())
	for k, v := range extra {
		vars[k] = v
	}
	return Substitute(layout, vars), nil
}

// FailureEmail renders the notification sent when a generation fails.
func FailureEmail(name, jobID string) (string, error) {
	layout, err := templates.FailureHTML()
	if err != nil {
		return "", err
	}
	return Substitute(layout, map[string]string{
		"FULL_NAME": strings.TrimSpace(name),
		"JOB_ID":    jobID,
	}), nil
}

// EmailSubject returns the subject line for templateID.
func EmailSubject(templateID string) string {
	if tpl, ok := templates.Lookup(templateID); ok && tpl.EmailSubject != "" {
		return tpl.EmailSubject
	}
	return "Your resume is ready"
}
