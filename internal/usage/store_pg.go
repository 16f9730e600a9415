package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"resume-optimizer/internal/shared/storage/db"
)

const accountColumns = `email, account_type, free_resumes_used, resumes_generated, flagged, flagged_reason, last_activity, created_at`

type pgStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPGStore constructs a Postgres-backed ledger store.
func NewPGStore(database *sql.DB) *pgStore {
	return &pgStore{DB: database, now: time.Now}
}

func (s *pgStore) Get(ctx context.Context, email string) (Account, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM user_accounts WHERE email = $1`, email)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (s *pgStore) Ensure(ctx context.Context, email string) (Account, error) {
	var a Account
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		a, err = s.lockAndEnsure(ctx, tx, email)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// Reserve counts committed usage plus live reservations against limit while
// holding the account row lock, so concurrent requests cannot both take the
// last free unit.
func (s *pgStore) Reserve(ctx context.Context, email, reservationID string, limit int, ttl time.Duration) (Reservation, Account, error) {
	var (
		r Reservation
		a Account
	)
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if a, err = s.lockAndEnsure(ctx, tx, email); err != nil {
			return err
		}
		now := s.now().UTC()
		if _, err = tx.ExecContext(ctx, `
DELETE FROM usage_reservations WHERE email = $1 AND expires_at <= $2`, email, now); err != nil {
			return err
		}
		var active int
		if err = tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM usage_reservations WHERE email = $1 AND expires_at > $2`, email, now).Scan(&active); err != nil {
			return err
		}
		if !withinLimit(a.FreeResumesUsed, active, limit) {
			return ErrLimitReached
		}
		r = Reservation{ID: reservationID, Email: email, ExpiresAt: now.Add(ttl), CreatedAt: now}
		_, err = tx.ExecContext(ctx, `
INSERT INTO usage_reservations (id, email, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
			r.ID, r.Email, r.ExpiresAt, r.CreatedAt)
		return err
	})
	switch {
	case errors.Is(err, ErrLimitReached):
		return Reservation{}, a, err
	case err != nil:
		return Reservation{}, Account{}, err
	}
	return r, a, nil
}

func (s *pgStore) Commit(ctx context.Context, reservationID string) (Account, error) {
	var a Account
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var email string
		err := tx.QueryRowContext(ctx, `
DELETE FROM usage_reservations WHERE id = $1 RETURNING email`, reservationID).Scan(&email)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
UPDATE user_accounts
SET free_resumes_used = free_resumes_used + 1,
    resumes_generated = resumes_generated + 1,
    last_activity = $2
WHERE email = $1
RETURNING `+accountColumns, email, s.now().UTC())
		a, err = scanAccount(row)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *pgStore) Release(ctx context.Context, reservationID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM usage_reservations WHERE id = $1`, reservationID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (s *pgStore) RecordPaid(ctx context.Context, email string) (Account, error) {
	var a Account
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := s.lockAndEnsure(ctx, tx, email); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
UPDATE user_accounts
SET resumes_generated = resumes_generated + 1, last_activity = $2
WHERE email = $1
RETURNING `+accountColumns, email, s.now().UTC())
		var err error
		a, err = scanAccount(row)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// Touch stores at as the last activity and returns the previous value.
func (s *pgStore) Touch(ctx context.Context, email string, at time.Time) (time.Time, error) {
	var prev time.Time
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		a, err := s.lockAndEnsure(ctx, tx, email)
		if err != nil {
			return err
		}
		if a.LastActivity != nil {
			prev = *a.LastActivity
		}
		_, err = tx.ExecContext(ctx, `
UPDATE user_accounts SET last_activity = $2 WHERE email = $1`, email, at.UTC())
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	return prev, nil
}

func (s *pgStore) Flag(ctx context.Context, email, reason string) error {
	return s.update(ctx, `
UPDATE user_accounts SET flagged = TRUE, flagged_reason = $2 WHERE email = $1`, email, reason)
}

func (s *pgStore) SetAccountType(ctx context.Context, email, accountType string) error {
	return s.update(ctx, `
UPDATE user_accounts SET account_type = $2 WHERE email = $1 AND account_type <> $2`, email, accountType)
}

func (s *pgStore) update(ctx context.Context, query, email, value string) error {
	if _, err := s.Ensure(ctx, email); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, query, email, value)
	return err
}

// lockAndEnsure locks the account row for the rest of tx, creating it first
// when absent. ON CONFLICT keeps two first-sight requests from failing.
func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, email string) (Account, error) {
	row := tx.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM user_accounts WHERE email = $1 FOR UPDATE`, email)
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Account{}, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO user_accounts (email, account_type, created_at) VALUES ($1, $2, $3)
ON CONFLICT (email) DO NOTHING`, email, AccountTypeStandard, s.now().UTC()); err != nil {
		return Account{}, err
	}
	row = tx.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM user_accounts WHERE email = $1 FOR UPDATE`, email)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (Account, error) {
	var a Account
	var last sql.NullTime
	if err := row.Scan(&a.Email, &a.AccountType, &a.FreeResumesUsed, &a.ResumesGenerated, &a.Flagged, &a.FlaggedReason, &last, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	if last.Valid {
		t := last.Time
		a.LastActivity = &t
	}
	return a, nil
}
