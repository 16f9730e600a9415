package eligibility

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

const signalColumns = `pattern_type, matched_value, email, severity, first_seen, last_seen, occurrence_count`

// PGSignalRepo stores signals in abuse_signals and sightings in ip_sightings.
type PGSignalRepo struct {
	DB *sql.DB
}

func (r *PGSignalRepo) Upsert(ctx context.Context, s Signal) (Signal, error) {
	const query = `
INSERT INTO abuse_signals (` + signalColumns + `)
VALUES ($1, $2, $3, $4, $5, $5, 1)
ON CONFLICT (pattern_type, matched_value) DO UPDATE SET
    last_seen = EXCLUDED.last_seen,
    occurrence_count = abuse_signals.occurrence_count + 1,
    severity = GREATEST(abuse_signals.severity, EXCLUDED.severity),
    email = EXCLUDED.email
RETURNING ` + signalColumns
	row := r.DB.QueryRowContext(ctx, query, string(s.PatternType), s.MatchedValue, s.Email, s.Severity, s.LastSeen)
	return scanSignal(row.Scan)
}

func (r *PGSignalRepo) ListForValues(ctx context.Context, values []string) ([]Signal, error) {
	if len(values) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = v
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+signalColumns+` FROM abuse_signals
WHERE matched_value IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *PGSignalRepo) List(ctx context.Context, limit int) ([]Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+signalColumns+` FROM abuse_signals
ORDER BY last_seen DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *PGSignalRepo) RecordSighting(ctx context.Context, ip, email string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO ip_sightings (ip, email, last_seen) VALUES ($1, $2, $3)
ON CONFLICT (ip, email) DO UPDATE SET last_seen = EXCLUDED.last_seen`, ip, email, at)
	return err
}

func (r *PGSignalRepo) DistinctEmailsForIP(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM ip_sightings WHERE ip = $1 AND last_seen >= $2`, ip, since).Scan(&n)
	return n, err
}

func scanSignals(rows *sql.Rows) ([]Signal, error) {
	var out []Signal
	for rows.Next() {
		s, err := scanSignal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSignal(scan func(dest ...any) error) (Signal, error) {
	var s Signal
	var pattern string
	if err := scan(&pattern, &s.MatchedValue, &s.Email, &s.Severity, &s.FirstSeen, &s.LastSeen, &s.OccurrenceCount); err != nil {
		return Signal{}, err
	}
	s.PatternType = PatternType(pattern)
	return s, nil
}
