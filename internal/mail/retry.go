package mail

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"

	"resume-optimizer/internal/shared/retry"
	"resume-optimizer/internal/shared/telemetry"
)

// Retrying retries transient delivery failures.
type Retrying struct {
	Base   Sender
	Policy retry.Policy
}

// NewRetrying wraps base with policy.
func NewRetrying(base Sender, policy retry.Policy) *Retrying {
	return &Retrying{Base: base, Policy: policy}
}

// Send delivers msg, retrying errors ShouldRetry accepts.
func (r *Retrying) Send(ctx context.Context, msg Message) error {
	return retry.Do(ctx, r.Policy, ShouldRetry, func(ctx context.Context) error {
		return r.Base.Send(ctx, msg)
	}, func(attempt int, delay time.Duration, err error) {
		telemetry.Warn("mail.retry", map[string]any{
			"to":       msg.To,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    err,
		})
	})
}

// ShouldRetry reports whether a send failure is transient. Throttling and
// 5xx responses retry; rejected messages and other 4xx do not.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidMessage) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout")
}

var _ Sender = (*Retrying)(nil)
