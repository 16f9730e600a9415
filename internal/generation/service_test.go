package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/intel"
	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/mail"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/shared/storage/object/local"
	"resume-optimizer/internal/usage"
)

const modelOutput = "PERSONAL INFO:\nName: Jane Doe\nEmail: jane@x.com\n\n" +
	"SUMMARY:\nGreat engineer\n\n" +
	"EXPERIENCE:\nSenior Dev - Acme\n2020 - Present\n• Did things\n\n" +
	"CERTIFICATIONS:\n[none]"

var resumeText = strings.Repeat("Jane Doe, senior developer at Acme building Go services. ", 3)

const jobText = "We are hiring a backend engineer with Go and Postgres experience."

type llmFunc func(ctx context.Context, prompt string) (string, error)

func (f llmFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	fail func(mail.Message) error
}

func (r *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	if r.fail != nil {
		return r.fail(msg)
	}
	return nil
}

func (r *recordingSender) messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.sent...)
}

type fixture struct {
	svc    *Service
	ledger *usage.Service
	jobs   *MemoryRepo
	sender *recordingSender
	intel  *intel.MemoryRepo
	elig   *eligibility.Service
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()
	ledger := usage.NewService()
	elig := eligibility.NewService(eligibility.NewMemoryWhitelistRepo(), eligibility.NewMemorySignalRepo(), ledger)
	jobs := NewMemoryRepo()
	sender := &recordingSender{}
	intelRepo := intel.NewMemoryRepo()
	store := local.New(t.TempDir(), "http://localhost:8080", "secret")

	svc := NewService(jobs, elig, ledger, client, render.NewService(), store, sender, intel.NewService(intelRepo))
	svc.Go = func(f func()) { f() }
	return &fixture{svc: svc, ledger: ledger, jobs: jobs, sender: sender, intel: intelRepo, elig: elig}
}

func okClient() llm.Client {
	return llmFunc(func(ctx context.Context, prompt string) (string, error) {
		return modelOutput, nil
	})
}

func request(email, templateID string) Request {
	return Request{
		Email:          email,
		ResumeContent:  resumeText,
		JobDescription: jobText,
		FileName:       "resume.pdf",
		TemplateID:     templateID,
		IP:             "203.0.113.10",
		UserAgent:      "Mozilla/5.0 (Macintosh) Chrome/120.0",
	}
}

func TestGenerateScenarioAThenB(t *testing.T) {
	f := newFixture(t, okClient())
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, request("jane@x.com", "ats-optimized"))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Session.FreeResumesUsed)
	assert.NotEmpty(t, res.DownloadURL)

	acct, err := f.ledger.CheckUsage(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.FreeResumesUsed)
	assert.Equal(t, 1, acct.ResumesGenerated)

	job, err := f.jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "jane@x.com", msgs[0].To)
	require.Len(t, msgs[0].Attachments, 1)
	assert.True(t, strings.HasPrefix(string(msgs[0].Attachments[0].Data), "%PDF"))

	rec, err := f.intel.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", rec.Email)

	res, err = f.svc.Generate(ctx, request("jane@x.com", "ats-optimized"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeEligibilityDenied, res.Code)
	assert.Equal(t, eligibility.ReasonStandardLimitReached, res.Reason)
	assert.Empty(t, res.JobID)

	acct, _ = f.ledger.CheckUsage(ctx, "jane@x.com")
	assert.Equal(t, 1, acct.FreeResumesUsed)
}

func TestGenerateScenarioEPaidBypassesFreeTier(t *testing.T) {
	f := newFixture(t, okClient())
	ctx := context.Background()

	_, err := f.ledger.RecordUsage(ctx, "paid@x.com")
	require.NoError(t, err)

	req := request("paid@x.com", "executive")
	req.PaymentVerified = true
	req.PaymentSessionID = "cs_test_1"
	res, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)
	require.True(t, res.Success)

	acct, err := f.ledger.CheckUsage(ctx, "paid@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.FreeResumesUsed)
	assert.Equal(t, 2, acct.ResumesGenerated)

	job, _ := f.jobs.Get(ctx, res.JobID)
	assert.True(t, job.PaymentVerified)
	assert.Equal(t, "cs_test_1", job.PaymentSessionID)
}

func TestGeneratePremiumTemplateAfterFreeUseRequiresPayment(t *testing.T) {
	f := newFixture(t, okClient())
	ctx := context.Background()
	_, err := f.ledger.RecordUsage(ctx, "pro@x.com")
	require.NoError(t, err)

	res, err := f.svc.Generate(ctx, request("pro@x.com", "executive"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.RequiresPayment)
	assert.NotEmpty(t, res.PaymentTemplateName)
	assert.Greater(t, res.OriginalPrice, int64(0))
}

func TestGenerateModelFailureReleasesReservation(t *testing.T) {
	calls := 0
	client := llmFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", &llm.StatusError{Provider: "openai", StatusCode: 500, Message: "internal provider detail"}
		}
		return modelOutput, nil
	})
	f := newFixture(t, client)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, request("retry@x.com", "ats-optimized"))
	require.Error(t, err)
	assert.Equal(t, CodeUpstreamModelFailed, CodeOf(err))
	assert.False(t, res.Success)
	assert.NotContains(t, res.Message, "internal provider detail")

	job, err := f.jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, CodeUpstreamModelFailed, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "http status 500")

	acct, _ := f.ledger.CheckUsage(ctx, "retry@x.com")
	assert.Equal(t, 0, acct.FreeResumesUsed)

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].HTML, res.JobID)

	res, err = f.svc.Generate(ctx, request("retry@x.com", "ats-optimized"))
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGenerateModelTimeout(t *testing.T) {
	client := llmFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := newFixture(t, client)
	f.svc.AITimeout = 20 * time.Millisecond

	res, err := f.svc.Generate(context.Background(), request("slow@x.com", "ats-optimized"))
	require.Error(t, err)
	assert.Equal(t, CodeUpstreamModelTimeout, res.Code)

	acct, _ := f.ledger.CheckUsage(context.Background(), "slow@x.com")
	assert.Equal(t, 0, acct.FreeResumesUsed)
}

func TestGenerateEmailFailureRecordsNoUsage(t *testing.T) {
	f := newFixture(t, okClient())
	f.sender.fail = func(mail.Message) error { return errors.New("ses send email: 400 MessageRejected") }

	res, err := f.svc.Generate(context.Background(), request("bounce@x.com", "ats-optimized"))
	require.Error(t, err)
	assert.Equal(t, CodeUpstreamEmailFailed, res.Code)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageEmail, se.Stage)

	job, _ := f.jobs.Get(context.Background(), res.JobID)
	assert.Equal(t, StatusFailed, job.Status)

	acct, _ := f.ledger.CheckUsage(context.Background(), "bounce@x.com")
	assert.Equal(t, 0, acct.FreeResumesUsed)
	assert.Equal(t, 0, acct.ResumesGenerated)
}

func TestGenerateDegradedParseStillDelivers(t *testing.T) {
	client := llmFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Jane Doe is a senior developer with a decade of Go experience.", nil
	})
	f := newFixture(t, client)

	res, err := f.svc.Generate(context.Background(), request("raw@x.com", "ats-optimized"))
	require.NoError(t, err)
	assert.True(t, res.Success)

	job, _ := f.jobs.Get(context.Background(), res.JobID)
	assert.Contains(t, job.ResultSummary, "degraded=true")
}

func TestGenerateValidationFailures(t *testing.T) {
	f := newFixture(t, okClient())
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{name: "short resume", mutate: func(r *Request) { r.ResumeContent = "too short" }},
		{name: "bad extension", mutate: func(r *Request) { r.FileName = "resume.exe" }},
		{name: "short job description", mutate: func(r *Request) { r.JobDescription = "Go" }},
		{name: "unknown template", mutate: func(r *Request) { r.TemplateID = "nope" }},
		{name: "missing email", mutate: func(r *Request) { r.Email = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("valid@x.com", "ats-optimized")
			tt.mutate(&req)
			res, err := f.svc.Generate(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, CodeValidationFailed, res.Code)
			assert.Empty(t, res.JobID)
		})
	}
	acct, _ := f.ledger.CheckUsage(context.Background(), "valid@x.com")
	assert.Nil(t, acct)
}

func TestGenerateConcurrentSingleAllowance(t *testing.T) {
	f := newFixture(t, okClient())
	const workers = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Generate(context.Background(), request("race@x.com", "ats-optimized"))
			if err == nil && res.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	acct, err := f.ledger.CheckUsage(context.Background(), "race@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.FreeResumesUsed)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusProcessing))
	assert.True(t, CanTransition(StatusProcessing, StatusFailed))
	assert.False(t, CanTransition(StatusCompleted, StatusProcessing))
	assert.False(t, CanTransition(StatusFailed, StatusPending))
	assert.False(t, CanTransition(StatusProcessing, StatusPending))
}

func TestMemoryRepoRejectsBackwardTransition(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, Job{ID: "j1", Status: StatusPending, CreatedAt: now}))
	_, err := repo.Transition(ctx, "j1", StatusProcessing, Update{At: now})
	require.NoError(t, err)
	_, err = repo.Transition(ctx, "j1", StatusCompleted, Update{At: now})
	require.NoError(t, err)
	_, err = repo.Transition(ctx, "j1", StatusFailed, Update{At: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = repo.Transition(ctx, "missing", StatusFailed, Update{At: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeErrorTruncates(t *testing.T) {
	msg := sanitizeError(errors.New(strings.Repeat("x", 800) + "\nline"))
	assert.Len(t, msg, maxErrorMessage)
}
