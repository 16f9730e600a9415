package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/queue"
)

type fakeGenerator struct {
	mu    sync.Mutex
	reqs  []generation.Request
	err   error
	jobID string
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return generation.Result{Code: generation.CodeOf(f.err)}, f.err
	}
	return generation.Result{Success: true, JobID: f.jobID}, nil
}

func (f *fakeGenerator) calls() []generation.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generation.Request(nil), f.reqs...)
}

type fakeQueue struct {
	msgs []queue.Message
	err  error
}

func (q *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func paidCheckout(sessionID string) Checkout {
	return Checkout{
		SessionID:     sessionID,
		PaymentStatus: "paid",
		AmountTotal:   1499,
		Metadata: map[string]string{
			"templateId":            "executive",
			"email":                 "jane@x.com",
			"encodedResumeData":     b64("Jane Doe resume"),
			"encodedJobDescription": b64("Staff engineer"),
			"fileName":              "resume.pdf",
		},
	}
}

func inlineService(gen Generator) (*Service, *MemoryEventRepo) {
	events := NewMemoryEventRepo()
	svc := NewService(events, gen, nil)
	svc.Now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	svc.Go = func(fn func()) { fn() }
	return svc, events
}

func TestHandleCheckoutRunsPaidGenerationOnce(t *testing.T) {
	gen := &fakeGenerator{jobID: "job-1"}
	svc, events := inlineService(gen)

	outcome, err := svc.HandleCheckout(context.Background(), "req-1", paidCheckout("cs_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)

	outcome, err = svc.HandleCheckout(context.Background(), "req-2", paidCheckout("cs_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	calls := gen.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].PaymentVerified)
	assert.Equal(t, "cs_1", calls[0].PaymentSessionID)
	assert.Equal(t, "Jane Doe resume", calls[0].ResumeContent)
	assert.Equal(t, "executive", calls[0].TemplateID)

	ev, err := events.Get(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", ev.JobID)
	assert.Equal(t, int64(1499), ev.AmountPaid)
}

func TestHandleCheckoutIgnoresUnpaid(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := inlineService(gen)

	c := paidCheckout("cs_2")
	c.PaymentStatus = "unpaid"
	outcome, err := svc.HandleCheckout(context.Background(), "", c)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, gen.calls())
}

func TestHandleCheckoutFallsBackToCustomerEmail(t *testing.T) {
	gen := &fakeGenerator{jobID: "job-3"}
	svc, _ := inlineService(gen)

	c := paidCheckout("cs_3")
	delete(c.Metadata, "email")
	c.CustomerEmail = "buyer@x.com"
	_, err := svc.HandleCheckout(context.Background(), "", c)
	require.NoError(t, err)
	require.Len(t, gen.calls(), 1)
	assert.Equal(t, "buyer@x.com", gen.calls()[0].Email)
}

func TestHandleCheckoutEnqueuesWhenQueueConfigured(t *testing.T) {
	gen := &fakeGenerator{}
	q := &fakeQueue{}
	svc, _ := inlineService(gen)
	svc.Queue = q

	outcome, err := svc.HandleCheckout(context.Background(), "req-9", paidCheckout("cs_4"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)
	assert.Empty(t, gen.calls())

	require.Len(t, q.msgs, 1)
	msg := q.msgs[0]
	assert.Equal(t, queue.KindPaidGeneration, msg.Kind)
	assert.Equal(t, "req-9", msg.RequestID)
	require.NotNil(t, msg.PaidGeneration)
	assert.Equal(t, "cs_4", msg.PaidGeneration.SessionID)
	assert.Equal(t, int64(1499), msg.PaidGeneration.AmountPaid)
}

func TestHandleCheckoutReleasesClaimWhenEnqueueFails(t *testing.T) {
	svc, events := inlineService(&fakeGenerator{})
	svc.Queue = &fakeQueue{err: errors.New("sqs down")}

	_, err := svc.HandleCheckout(context.Background(), "", paidCheckout("cs_5"))
	require.Error(t, err)

	_, err = events.Get(context.Background(), "cs_5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFulfillSkipsDeliveredSession(t *testing.T) {
	gen := &fakeGenerator{jobID: "job-6"}
	svc, events := inlineService(gen)
	q := queue.PaidGeneration{
		SessionID:      "cs_6",
		Email:          "jane@x.com",
		TemplateID:     "executive",
		ResumeContent:  "resume",
		JobDescription: "jd",
	}

	require.NoError(t, svc.ProcessPaidGeneration(context.Background(), q))
	require.NoError(t, svc.ProcessPaidGeneration(context.Background(), q))
	assert.Len(t, gen.calls(), 1)

	ev, err := events.Get(context.Background(), "cs_6")
	require.NoError(t, err)
	assert.Equal(t, "job-6", ev.JobID)
}

func TestFulfillReturnsGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: &generation.StageError{Stage: generation.StageModel, Code: generation.CodeUpstreamModelTimeout, Err: context.DeadlineExceeded}}
	svc, events := inlineService(gen)

	err := svc.ProcessPaidGeneration(context.Background(), queue.PaidGeneration{SessionID: "cs_7", Email: "a@b.co", TemplateID: "executive", ResumeContent: "r", JobDescription: "j"})
	require.Error(t, err)
	assert.Equal(t, generation.CodeUpstreamModelTimeout, generation.CodeOf(err))

	ev, err := events.Get(context.Background(), "cs_7")
	require.NoError(t, err)
	assert.Empty(t, ev.JobID, "failed session stays retryable")
}
