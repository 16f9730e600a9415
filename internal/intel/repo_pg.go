package intel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo stores records in the resume_intelligence table.
type PGRepo struct {
	DB *sql.DB
}

// Save upserts the record for its job.
func (r *PGRepo) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	const query = `
INSERT INTO resume_intelligence (job_id, email, facts, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (job_id) DO UPDATE SET facts = EXCLUDED.facts`
	_, err = r.DB.ExecContext(ctx, query, rec.JobID, rec.Email, payload, rec.CreatedAt)
	return err
}

// Get returns the record for jobID.
func (r *PGRepo) Get(ctx context.Context, jobID string) (Record, error) {
	const query = `
SELECT job_id, email, facts, created_at
FROM resume_intelligence
WHERE job_id = $1`
	var rec Record
	var payload []byte
	err := r.DB.QueryRowContext(ctx, query, jobID).Scan(&rec.JobID, &rec.Email, &payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Facts); err != nil {
		return Record{}, fmt.Errorf("decode facts: %w", err)
	}
	return rec, nil
}
