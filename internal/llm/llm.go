// Package llm defines the text-in/text-out model client and the wrappers
// the generation pipeline puts around every provider.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client completes a prompt with a single model call.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrNotImplemented is returned by the placeholder client when it has no
	// canned response.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrEmptyResponse is returned when a provider answers without text.
	ErrEmptyResponse = errors.New("llm response empty content")
)

// StatusError is a provider HTTP failure. Message is provider text and must
// never reach end users.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// PlaceholderClient returns Response for every prompt, or ErrNotImplemented
// when Response is empty. It backs local runs without a provider key.
type PlaceholderClient struct {
	Response string
}

// Complete returns the canned response.
func (p PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Response == "" {
		return "", ErrNotImplemented
	}
	return p.Response, nil
}

// SampleResponse is a well-formed model answer used by the placeholder client
// in development.
const SampleResponse = `PERSONAL INFO:
Name: Sample Candidate
Email: sample@example.com
Phone: +1 555 0100
Location: Remote

SUMMARY:
Backend engineer with experience building reliable services.

EXPERIENCE:
Software Engineer - Example Corp
2021 - Present
• Built and operated HTTP services in Go
• Reduced p99 latency by 40% through query tuning

EDUCATION:
BSc Computer Science - Example University
2015 - 2019

SKILLS:
Languages: Go, SQL, Python
Infrastructure: Postgres, AWS, Docker`
