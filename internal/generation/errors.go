package generation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Failure codes stored on failed jobs and returned to callers.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeEligibilityDenied    = "ELIGIBILITY_DENIED"
	CodeUpstreamModelFailed  = "UPSTREAM_MODEL_FAILED"
	CodeUpstreamModelTimeout = "UPSTREAM_MODEL_TIMEOUT"
	CodeUpstreamEmailFailed  = "UPSTREAM_EMAIL_FAILED"
	CodeRenderFailed         = "RENDER_FAILED"
	CodeStorageFailed        = "STORAGE_FAILED"
	CodePersistenceFailed    = "PERSISTENCE_FAILED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Pipeline stages.
const (
	StageValidate    = "validate"
	StageEligibility = "eligibility"
	StageJob         = "job"
	StageModel       = "model"
	StageParse       = "parse"
	StageRender      = "render"
	StageUpload      = "upload"
	StageEmail       = "email"
	StageLedger      = "ledger"
)

// StageError is a pipeline failure tagged with where it happened.
type StageError struct {
	Stage string
	Code  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage, code string, err error) *StageError {
	return &StageError{Stage: stage, Code: code, Err: err}
}

// CodeOf returns the failure code carried by err.
func CodeOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

const maxErrorMessage = 500

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return msg
}
