package generation

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID tags ctx with the id of the request or queue message that
// started the generation, so every log line of the run can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// detach keeps ctx's values (request id, trace span) without its deadline,
// for cleanup writes that must land after the request budget is spent.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
