package intel

import (
	"context"
	"fmt"
	"time"

	"resume-optimizer/internal/resume"
	"resume-optimizer/internal/shared/telemetry"
)

// Service extracts and stores facts for completed generations.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Record extracts facts and stores them. Failures, including panics, are
// logged and swallowed.
func (s *Service) Record(ctx context.Context, jobID, email string, doc resume.Document, jobDescription string) {
	if s == nil || s.Repo == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("intel.panic", map[string]any{
				"job_id": jobID,
				"error":  fmt.Sprint(rec),
			})
		}
	}()

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	facts := Extract(doc, jobDescription, now)
	if err := s.Repo.Save(ctx, Record{JobID: jobID, Email: email, Facts: facts, CreatedAt: now}); err != nil {
		telemetry.Warn("intel.save_failed", map[string]any{
			"job_id": jobID,
			"email":  email,
			"error":  err,
		})
		return
	}
	telemetry.Info("intel.recorded", map[string]any{
		"job_id":           jobID,
		"skills":           len(facts.Skills),
		"technologies":     len(facts.Technologies),
		"experience_years": facts.ExperienceYears,
		"education_level":  facts.EducationLevel,
	})
}
