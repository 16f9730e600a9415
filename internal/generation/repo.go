package generation

import "context"

// Repo persists generation jobs. Transition rejects moves CanTransition
// forbids with ErrInvalidTransition.
type Repo interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]Job, error)
	Transition(ctx context.Context, id string, to Status, upd Update) (Job, error)
}

func applyTransition(job *Job, to Status, upd Update) {
	job.Status = to
	job.UpdatedAt = upd.At
	switch to {
	case StatusProcessing:
		at := upd.At
		job.StartedAt = &at
	case StatusCompleted, StatusFailed:
		at := upd.At
		job.CompletedAt = &at
	}
	if upd.ErrorCode != "" {
		job.ErrorCode = upd.ErrorCode
	}
	if upd.ErrorMessage != "" {
		job.ErrorMessage = upd.ErrorMessage
	}
	if upd.ResultSummary != "" {
		job.ResultSummary = upd.ResultSummary
	}
}
