package generation

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, requester_email, template_id, status, payment_verified, payment_session_id,
       error_code, error_message, result_summary, started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var status string
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&j.ID,
		&j.RequesterEmail,
		&j.TemplateID,
		&status,
		&j.PaymentVerified,
		&j.PaymentSessionID,
		&j.ErrorCode,
		&j.ErrorMessage,
		&j.ResultSummary,
		&startedAt,
		&completedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return j, nil
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO generation_jobs (
	id, requester_email, template_id, status, payment_verified, payment_session_id, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.RequesterEmail,
		job.TemplateID,
		string(job.Status),
		job.PaymentVerified,
		job.PaymentSessionID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Get returns a job by ID.
func (r *PGRepo) Get(ctx context.Context, id string) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// ListByEmail returns the newest jobs for email first.
func (r *PGRepo) ListByEmail(ctx context.Context, email string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM generation_jobs
WHERE requester_email = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Transition locks the job row, checks the move and writes it.
func (r *PGRepo) Transition(ctx context.Context, id string, to Status, upd Update) (job Job, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1 FOR UPDATE`
	job, err = scanJob(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	if !CanTransition(job.Status, to) {
		err = ErrInvalidTransition
		return Job{}, err
	}
	applyTransition(&job, to, upd)

	const update = `
UPDATE generation_jobs
SET status = $2, error_code = $3, error_message = $4, result_summary = $5,
    started_at = $6, completed_at = $7, updated_at = $8
WHERE id = $1`
	if _, err = tx.ExecContext(ctx, update,
		job.ID,
		string(job.Status),
		job.ErrorCode,
		job.ErrorMessage,
		job.ResultSummary,
		nullTime(job.StartedAt),
		nullTime(job.CompletedAt),
		job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	if err = tx.Commit(); err != nil {
		return Job{}, err
	}
	return job, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
