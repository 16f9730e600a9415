package render

import "fmt"

// RenderError wraps a failure to produce a deliverable.
type RenderError struct {
	TemplateID string
	Format     Format
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s for template %q: %v", e.Format, e.TemplateID, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
