package intel

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a job.
var ErrNotFound = errors.New("not found")

// Record is the persisted form of Facts.
type Record struct {
	JobID     string
	Email     string
	Facts     Facts
	CreatedAt time.Time
}

// Repo persists intelligence records.
type Repo interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, jobID string) (Record, error)
}
