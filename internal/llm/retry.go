package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/retry"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/shared/tracing"
)

// Retrying retries transient provider failures with exponential backoff.
type Retrying struct {
	Base     Client
	Provider string
	Policy   retry.Policy
}

// NewRetrying wraps base with policy.
func NewRetrying(base Client, provider string, policy retry.Policy) *Retrying {
	return &Retrying{Base: base, Provider: provider, Policy: policy}
}

// Complete calls the wrapped client, retrying only errors ShouldRetry accepts.
func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracing.Start(ctx, "llm.complete",
		attribute.String("llm.provider", r.Provider),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)
	var out string
	err := retry.Do(ctx, r.Policy, ShouldRetry, func(ctx context.Context) error {
		text, err := r.Base.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		metrics.IncLLMRequest(r.Provider, "retry")
		telemetry.Warn("llm.retry", map[string]any{
			"provider": r.Provider,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    SanitizeError(err),
		})
	})
	if err != nil {
		metrics.IncLLMRequest(r.Provider, "error")
	} else {
		metrics.IncLLMRequest(r.Provider, "ok")
		span.SetAttributes(attribute.Int("llm.response_chars", len(out)))
	}
	tracing.End(span, err)
	return out, err
}

// ShouldRetry reports whether err is transient: timeouts, 5xx, 429 and
// connection failures. Auth and other 4xx errors are permanent.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotImplemented) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") || strings.Contains(msg, "overloaded") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof")
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SanitizeError shortens provider error text for logs.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}
