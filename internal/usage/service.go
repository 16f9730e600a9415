package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service is the ledger API used by eligibility and generation.
type Service struct {
	store Store
	TTL   time.Duration
}

// NewService constructs a Service with an in-memory store.
func NewService() *Service {
	return NewServiceWithStore(NewMemoryStore())
}

// NewServiceWithStore constructs a Service over store, either the Postgres
// ledger or the in-memory one.
func NewServiceWithStore(store Store) *Service {
	return &Service{store: store, TTL: DefaultReservationTTL}
}

// CheckUsage returns the account for email, or nil when it has never been seen.
func (s *Service) CheckUsage(ctx context.Context, email string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	a, err := s.store.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// RecordUsage increments both counters by exactly one, bypassing the
// allowance check.
func (s *Service) RecordUsage(ctx context.Context, email string) (Account, error) {
	r, _, err := s.Reserve(ctx, email, Unlimited)
	if err != nil {
		return Account{}, err
	}
	return s.store.Commit(ctx, r.ID)
}

// Ensure creates the account on first sight.
func (s *Service) Ensure(ctx context.Context, email string) (Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Account{}, ErrInvalidEmail
	}
	return s.store.Ensure(ctx, email)
}

// Reserve holds one unit of a limited allowance. limit < 0 is unlimited.
// The returned account reflects the counters at reservation time, including
// on ErrLimitReached.
func (s *Service) Reserve(ctx context.Context, email string, limit int) (Reservation, Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Reservation{}, Account{}, ErrInvalidEmail
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return s.store.Reserve(ctx, email, uuid.NewString(), limit, ttl)
}

// Commit consumes a reservation after the deliverable was handed off.
func (s *Service) Commit(ctx context.Context, reservationID string) (Account, error) {
	return s.store.Commit(ctx, reservationID)
}

// Release returns a reservation's unit. Releasing an unknown or expired
// reservation is not an error.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return nil
	}
	err := s.store.Release(ctx, reservationID)
	if errors.Is(err, ErrReservationNotFound) {
		return nil
	}
	return err
}

// RecordPaid counts a payment-verified generation without touching the free
// allowance.
func (s *Service) RecordPaid(ctx context.Context, email string) (Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Account{}, ErrInvalidEmail
	}
	return s.store.RecordPaid(ctx, email)
}

// Touch records activity at t and returns the previous activity time.
func (s *Service) Touch(ctx context.Context, email string, t time.Time) (time.Time, error) {
	return s.store.Touch(ctx, NormalizeEmail(email), t)
}

// Flag marks the account as flagged with reason.
func (s *Service) Flag(ctx context.Context, email, reason string) error {
	return s.store.Flag(ctx, NormalizeEmail(email), reason)
}

// SetAccountType records the whitelist-derived account tag.
func (s *Service) SetAccountType(ctx context.Context, email, accountType string) error {
	if accountType == "" {
		accountType = AccountTypeStandard
	}
	return s.store.SetAccountType(ctx, NormalizeEmail(email), accountType)
}
