package sanitize

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonTooShort             Reason = "too_short"
	ReasonTooLong              Reason = "too_long"
	ReasonUnsupportedExtension Reason = "unsupported_extension"
	ReasonInvalidFileName      Reason = "invalid_file_name"
	ReasonDangerousContentOnly Reason = "dangerous_content_only"
	ReasonInvalidUTF8          Reason = "invalid_utf8"
)

// RejectError describes why submitted content was refused.
type RejectError struct {
	Reason Reason
	Field  string
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s rejected: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s rejected: %s (%s)", e.Field, e.Reason, e.Detail)
}

// AsReject unwraps a *RejectError from err.
func AsReject(err error) (*RejectError, bool) {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func reject(field string, reason Reason, detail string) error {
	return &RejectError{Reason: reason, Field: field, Detail: detail}
}
