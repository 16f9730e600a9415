package payments

import "context"

// EventRepo persists checkout sessions seen by the webhook.
type EventRepo interface {
	// Claim records ev and reports false when the session was already seen.
	Claim(ctx context.Context, ev Event) (bool, error)
	Get(ctx context.Context, sessionID string) (Event, error)
	SetJobID(ctx context.Context, sessionID, jobID string) error
	// Release forgets an unfulfilled session so a redelivery can claim it.
	Release(ctx context.Context, sessionID string) error
}
