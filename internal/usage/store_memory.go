package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu           sync.Mutex
	accounts     map[string]Account
	reservations map[string]Reservation
	now          func() time.Time
}

// NewMemoryStore constructs an in-memory ledger store for dev and tests.
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:     make(map[string]Account),
		reservations: make(map[string]Reservation),
		now:          time.Now,
	}
}

func (s *memoryStore) Get(ctx context.Context, email string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) Ensure(ctx context.Context, email string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(email), nil
}

func (s *memoryStore) Reserve(ctx context.Context, email, reservationID string, limit int, ttl time.Duration) (Reservation, Account, error) {
	if err := ctx.Err(); err != nil {
		return Reservation{}, Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.ensureLocked(email)
	now := s.now().UTC()
	active := 0
	for id, r := range s.reservations {
		if r.Email != email {
			continue
		}
		if !r.ExpiresAt.After(now) {
			delete(s.reservations, id)
			continue
		}
		active++
	}
	if !withinLimit(a.FreeResumesUsed, active, limit) {
		return Reservation{}, a, ErrLimitReached
	}
	r := Reservation{ID: reservationID, Email: email, ExpiresAt: now.Add(ttl), CreatedAt: now}
	s.reservations[reservationID] = r
	return r, a, nil
}

func (s *memoryStore) Commit(ctx context.Context, reservationID string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return Account{}, ErrReservationNotFound
	}
	delete(s.reservations, reservationID)
	a := s.ensureLocked(r.Email)
	a.FreeResumesUsed++
	a.ResumesGenerated++
	now := s.now().UTC()
	a.LastActivity = &now
	s.accounts[r.Email] = a
	return a, nil
}

func (s *memoryStore) Release(ctx context.Context, reservationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[reservationID]; !ok {
		return ErrReservationNotFound
	}
	delete(s.reservations, reservationID)
	return nil
}

func (s *memoryStore) RecordPaid(ctx context.Context, email string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.ensureLocked(email)
	a.ResumesGenerated++
	now := s.now().UTC()
	a.LastActivity = &now
	s.accounts[email] = a
	return a, nil
}

func (s *memoryStore) Touch(ctx context.Context, email string, at time.Time) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.ensureLocked(email)
	var prev time.Time
	if a.LastActivity != nil {
		prev = *a.LastActivity
	}
	at = at.UTC()
	a.LastActivity = &at
	s.accounts[email] = a
	return prev, nil
}

func (s *memoryStore) Flag(ctx context.Context, email, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.ensureLocked(email)
	a.Flagged = true
	a.FlaggedReason = reason
	s.accounts[email] = a
	return nil
}

func (s *memoryStore) SetAccountType(ctx context.Context, email, accountType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.ensureLocked(email)
	a.AccountType = accountType
	s.accounts[email] = a
	return nil
}

func (s *memoryStore) ensureLocked(email string) Account {
	a, ok := s.accounts[email]
	if !ok {
		a = newAccount(email, s.now().UTC())
		s.accounts[email] = a
	}
	return a
}
