package payments

import (
	"context"
	"database/sql"
	"errors"
)

// PGEventRepo implements EventRepo using Postgres.
type PGEventRepo struct {
	DB *sql.DB
}

func (r *PGEventRepo) Claim(ctx context.Context, ev Event) (bool, error) {
	const query = `
INSERT INTO payment_events (session_id, email, template_id, amount_paid, received_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, ev.SessionID, ev.Email, ev.TemplateID, ev.AmountPaid, ev.ReceivedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGEventRepo) Get(ctx context.Context, sessionID string) (Event, error) {
	const query = `
SELECT session_id, email, template_id, amount_paid, job_id, received_at
FROM payment_events
WHERE session_id = $1`
	var ev Event
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&ev.SessionID,
		&ev.Email,
		&ev.TemplateID,
		&ev.AmountPaid,
		&ev.JobID,
		&ev.ReceivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (r *PGEventRepo) SetJobID(ctx context.Context, sessionID, jobID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE payment_events SET job_id = $2 WHERE session_id = $1`, sessionID, jobID)
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

func (r *PGEventRepo) Release(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM payment_events WHERE session_id = $1 AND job_id = ''`, sessionID)
	return err
}
