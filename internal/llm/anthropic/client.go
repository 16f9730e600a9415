// Package anthropic adapts the Claude Messages API to llm.Client.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"resume-optimizer/internal/llm"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// Client implements llm.Client over the Anthropic SDK.
type Client struct {
	model     string
	maxTokens int64
	messages  messageCreator
}

type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// NewClient constructs a Claude client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		// Retries are owned by llm.Retrying.
		option.WithMaxRetries(0),
	)
	return &Client{model: model, maxTokens: defaultMaxTokens, messages: &client.Messages}, nil
}

// Complete sends prompt as one user turn and joins the returned text blocks.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{Provider: providerName, StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

var _ llm.Client = (*Client)(nil)
