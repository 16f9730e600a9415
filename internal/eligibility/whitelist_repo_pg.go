package eligibility

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"resume-optimizer/internal/shared/storage/db"
)

const whitelistColumns = `id, match_type, match_value, free_allowance, discount_percent, premium_access, account_tag, active, created_at`

// PGWhitelistRepo stores entries in whitelist_entries.
type PGWhitelistRepo struct {
	DB *sql.DB
}

func (r *PGWhitelistRepo) Create(ctx context.Context, e WhitelistEntry) error {
	const query = `
INSERT INTO whitelist_entries (` + whitelistColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var allowance any
	if e.FreeAllowance != nil {
		allowance = *e.FreeAllowance
	}
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, string(e.MatchType), e.MatchValue, allowance, e.DiscountPercent,
		e.PremiumAccess, e.AccountTag, e.Active, e.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEntry
	}
	return err
}

func (r *PGWhitelistRepo) List(ctx context.Context, includeInactive bool) ([]WhitelistEntry, error) {
	query := `SELECT ` + whitelistColumns + ` FROM whitelist_entries`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PGWhitelistRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE whitelist_entries SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGWhitelistRepo) FindActiveByEmail(ctx context.Context, email string) (WhitelistEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+whitelistColumns+` FROM whitelist_entries
WHERE active AND match_type = 'email' AND match_value = $1
LIMIT 1`, email)
	if err != nil {
		return WhitelistEntry{}, err
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return WhitelistEntry{}, err
	}
	if len(entries) == 0 {
		return WhitelistEntry{}, ErrNotFound
	}
	return entries[0], nil
}

func (r *PGWhitelistRepo) FindActiveByDomains(ctx context.Context, domains []string) ([]WhitelistEntry, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(domains))
	args := make([]any, len(domains))
	for i, d := range domains {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = d
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+whitelistColumns+` FROM whitelist_entries
WHERE active AND match_type = 'domain' AND match_value IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PGWhitelistRepo) ListActiveIPRanges(ctx context.Context) ([]WhitelistEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+whitelistColumns+` FROM whitelist_entries
WHERE active AND match_type = 'ip_range'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]WhitelistEntry, error) {
	var out []WhitelistEntry
	for rows.Next() {
		var e WhitelistEntry
		var matchType string
		var allowance sql.NullInt64
		if err := rows.Scan(&e.ID, &matchType, &e.MatchValue, &allowance, &e.DiscountPercent, &e.PremiumAccess, &e.AccountTag, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.MatchType = MatchType(matchType)
		if allowance.Valid {
			n := int(allowance.Int64)
			e.FreeAllowance = &n
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
