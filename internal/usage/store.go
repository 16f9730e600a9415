package usage

import (
	"context"
	"time"
)

// Store is the single authoritative write path for account counters.
type Store interface {
	Get(ctx context.Context, email string) (Account, error)
	Ensure(ctx context.Context, email string) (Account, error)
	// Reserve atomically checks the allowance, counting active reservations,
	// and holds one unit. A negative limit always grants.
	Reserve(ctx context.Context, email, reservationID string, limit int, ttl time.Duration) (Reservation, Account, error)
	// Commit consumes the reservation and increments both counters.
	Commit(ctx context.Context, reservationID string) (Account, error)
	Release(ctx context.Context, reservationID string) error
	// RecordPaid increments resumesGenerated only.
	RecordPaid(ctx context.Context, email string) (Account, error)
	// Touch sets lastActivity and returns the previous value, zero when the
	// account had no activity.
	Touch(ctx context.Context, email string, at time.Time) (time.Time, error)
	Flag(ctx context.Context, email, reason string) error
	SetAccountType(ctx context.Context, email, accountType string) error
}
