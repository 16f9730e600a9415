package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var entryCols = []string{"id", "match_type", "match_value", "free_allowance", "discount_percent", "premium_access", "account_tag", "active", "created_at"}

func TestPGFindActiveByDomainsBuildsInClause(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGWhitelistRepo{DB: db}

	mock.ExpectQuery(`match_type = 'domain' AND match_value IN \(\$1, \$2\)`).
		WithArgs("eng.acme.com", "acme.com").
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow("wl-1", "domain", "acme.com", nil, 10, true, "acme", true, time.Now()).
			AddRow("wl-2", "domain", "eng.acme.com", 5, 0, false, "", true, time.Now()))

	entries, err := repo.FindActiveByDomains(context.Background(), []string{"eng.acme.com", "acme.com"})
	if err != nil {
		t.Fatalf("FindActiveByDomains: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Unlimited() || entries[1].Limit() != 5 {
		t.Fatalf("unexpected allowances %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGWhitelistRepo{DB: db}

	mock.ExpectExec(`INSERT INTO whitelist_entries`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), WhitelistEntry{ID: "wl-1", MatchType: MatchEmail, MatchValue: "a@b.com", Active: true})
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
}

func TestPGSignalUpsertKeepsHighestSeverity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGSignalRepo{DB: db}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ON CONFLICT \(pattern_type, matched_value\) DO UPDATE`).
		WithArgs("rapid-repeat", "jane@x.com", "jane@x.com", 1, now).
		WillReturnRows(sqlmock.NewRows([]string{"pattern_type", "matched_value", "email", "severity", "first_seen", "last_seen", "occurrence_count"}).
			AddRow("rapid-repeat", "jane@x.com", "jane@x.com", 1, now.Add(-time.Minute), now, 2))

	s, err := repo.Upsert(context.Background(), Signal{PatternType: PatternRapidRepeat, MatchedValue: "jane@x.com", Email: "jane@x.com", Severity: 1, LastSeen: now})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if s.OccurrenceCount != 2 || s.PatternType != PatternRapidRepeat {
		t.Fatalf("unexpected signal %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGDistinctEmailsForIP(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGSignalRepo{DB: db}
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ip_sightings`).
		WithArgs("198.51.100.9", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.DistinctEmailsForIP(context.Background(), "198.51.100.9", since)
	if err != nil || n != 3 {
		t.Fatalf("DistinctEmailsForIP: %d %v", n, err)
	}
}
