// Package gemini adapts the Google GenAI SDK to llm.Client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"resume-optimizer/internal/llm"
)

const providerName = "gemini"

type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Client implements llm.Client over Gemini.
type Client struct {
	model    string
	generate generateFunc
}

// NewClient constructs a Gemini client against the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		model: model,
		generate: func(ctx context.Context, model, prompt string) (string, error) {
			resp, err := gc.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

// Complete sends prompt as a single text part.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.generate(ctx, c.model, prompt)
	if err != nil {
		return "", mapError(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: providerName, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Provider: providerName, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}

var _ llm.Client = (*Client)(nil)
