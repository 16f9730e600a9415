package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/shared/retry"
)

type scriptedClient struct {
	calls int32
	errs  []error
	out   string
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	n := int(atomic.AddInt32(&s.calls, 1)) - 1
	if n < len(s.errs) && s.errs[n] != nil {
		return "", s.errs[n]
	}
	return s.out, nil
}

func noSleepPolicy(attempts int) retry.Policy {
	p := retry.DefaultPolicy().WithAttempts(attempts)
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "429", err: &StatusError{Provider: "openai", StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "503", err: &StatusError{Provider: "openai", StatusCode: http.StatusServiceUnavailable}, want: true},
		{name: "401", err: &StatusError{Provider: "openai", StatusCode: http.StatusUnauthorized}, want: false},
		{name: "400", err: &StatusError{Provider: "gemini", StatusCode: http.StatusBadRequest}, want: false},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "unexpected eof", err: errors.New("unexpected EOF"), want: true},
		{name: "not implemented", err: ErrNotImplemented, want: false},
		{name: "empty", err: ErrEmptyResponse, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	base := &scriptedClient{
		errs: []error{&StatusError{StatusCode: 502}, context.DeadlineExceeded},
		out:  "ok",
	}
	r := NewRetrying(base, "test", noSleepPolicy(3))

	out, err := r.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), base.calls)
}

func TestRetryingStopsOnPermanentFailure(t *testing.T) {
	auth := &StatusError{StatusCode: 401, Message: "bad key"}
	base := &scriptedClient{errs: []error{auth}}
	r := NewRetrying(base, "test", noSleepPolicy(3))

	_, err := r.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, auth)
	assert.Equal(t, int32(1), base.calls)
}

func TestRetryingGivesUpAfterAttempts(t *testing.T) {
	base := &scriptedClient{errs: []error{
		&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}, nil,
	}}
	r := NewRetrying(base, "test", noSleepPolicy(3))

	_, err := r.Complete(context.Background(), "p")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, int32(3), base.calls)
}

func TestBreakerOpensAfterConsecutiveTransientFailures(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &StatusError{StatusCode: 503}
	}
	base := &scriptedClient{errs: errs}
	b := NewBreaker(base, "test", BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Complete(context.Background(), "p")
		require.Error(t, err)
	}
	_, err := b.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), base.calls)
	assert.Equal(t, "open", b.State())
	assert.False(t, ShouldRetry(err))
}

func TestBreakerIgnoresPermanentFailures(t *testing.T) {
	errs := make([]error, 6)
	for i := range errs {
		errs[i] = &StatusError{StatusCode: 400}
	}
	b := NewBreaker(&scriptedClient{errs: errs}, "test", BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := b.Complete(context.Background(), "p")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
	assert.Equal(t, "closed", b.State())
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotImplemented)

	out, err := PlaceholderClient{Response: SampleResponse}.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Contains(t, out, "EXPERIENCE:")
}
