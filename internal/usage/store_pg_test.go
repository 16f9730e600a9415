package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var accountCols = []string{"email", "account_type", "free_resumes_used", "resumes_generated", "flagged", "flagged_reason", "last_activity", "created_at"}

func newMockStore(t *testing.T) (*pgStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := NewPGStore(db)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store, mock
}

func accountRow(email string, used, generated int) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(email, AccountTypeStandard, used, generated, false, "", nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestPGReserveLocksAccountRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM user_accounts WHERE email = \$1 FOR UPDATE`).
		WithArgs("jane@x.com").
		WillReturnRows(accountRow("jane@x.com", 0, 0))
	mock.ExpectExec(`DELETE FROM usage_reservations WHERE email = \$1 AND expires_at <= \$2`).
		WithArgs("jane@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM usage_reservations`).
		WithArgs("jane@x.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO usage_reservations`).
		WithArgs("res-1", "jane@x.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r, _, err := store.Reserve(context.Background(), "jane@x.com", "res-1", 1, DefaultReservationTTL)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if r.ExpiresAt.Sub(r.CreatedAt) != DefaultReservationTTL {
		t.Fatalf("unexpected ttl %s", r.ExpiresAt.Sub(r.CreatedAt))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGReserveRollsBackWhenLimitReached(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("jane@x.com").
		WillReturnRows(accountRow("jane@x.com", 1, 1))
	mock.ExpectExec(`DELETE FROM usage_reservations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM usage_reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, acct, err := store.Reserve(context.Background(), "jane@x.com", "res-2", 1, DefaultReservationTTL)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if acct.FreeResumesUsed != 1 {
		t.Fatalf("expected account snapshot, got %+v", acct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGReserveCreatesAccountOnFirstSight(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("new@x.com").
		WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectExec(`INSERT INTO user_accounts`).
		WithArgs("new@x.com", AccountTypeStandard, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("new@x.com").
		WillReturnRows(accountRow("new@x.com", 0, 0))
	mock.ExpectExec(`DELETE FROM usage_reservations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM usage_reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO usage_reservations`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, _, err := store.Reserve(context.Background(), "new@x.com", "res-3", 1, DefaultReservationTTL); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCommitIncrementsBothCounters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM usage_reservations WHERE id = \$1 RETURNING email`).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("jane@x.com"))
	mock.ExpectQuery(`UPDATE user_accounts`).
		WithArgs("jane@x.com", sqlmock.AnyArg()).
		WillReturnRows(accountRow("jane@x.com", 1, 1))
	mock.ExpectCommit()

	a, err := store.Commit(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if a.FreeResumesUsed != 1 || a.ResumesGenerated != 1 {
		t.Fatalf("unexpected counters %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCommitUnknownReservation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM usage_reservations`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectRollback()

	if _, err := store.Commit(context.Background(), "gone"); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM user_accounts WHERE email = \$1`).
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows(accountCols))

	if _, err := store.Get(context.Background(), "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
