package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/queue"
)

type fakeProcessor struct {
	got []queue.PaidGeneration
	err error
}

func (f *fakeProcessor) ProcessPaidGeneration(ctx context.Context, p queue.PaidGeneration) error {
	f.got = append(f.got, p)
	return f.err
}

func paidBody(t *testing.T) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		Kind:       queue.KindPaidGeneration,
		Version:    queue.CurrentVersion,
		RequestID:  "req-1",
		EnqueuedAt: "2026-02-01T00:00:00Z",
		PaidGeneration: &queue.PaidGeneration{
			SessionID:      "cs_1",
			Email:          "jane@x.com",
			TemplateID:     "executive",
			ResumeContent:  "resume",
			JobDescription: "jd",
		},
	})
	require.NoError(t, err)
	return string(body)
}

func TestParseMessageErrors(t *testing.T) {
	_, _, err := ParseMessage("   ")
	assert.IsType(t, ErrEmptyBody{}, err)

	_, meta, err := ParseMessage("{bad")
	var decodeErr ErrDecode
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 4, meta.BodyLen)
	assert.Len(t, meta.BodySHA, 64)

	_, _, err = ParseMessage(`{"kind":"paid_generation","version":1,"enqueuedAt":"x"}`)
	assert.ErrorIs(t, err, queue.ErrInvalidMessage)
}

func TestHandleMessageDispatchesPayload(t *testing.T) {
	proc := &fakeProcessor{}
	require.NoError(t, HandleMessage(context.Background(), proc, paidBody(t)))
	require.Len(t, proc.got, 1)
	assert.Equal(t, "cs_1", proc.got[0].SessionID)
}

func TestHandleMessageReusesParsedMessage(t *testing.T) {
	proc := &fakeProcessor{}
	msg, _, err := ParseMessage(paidBody(t))
	require.NoError(t, err)

	ctx := WithParsedMessage(context.Background(), msg)
	require.NoError(t, HandleMessage(ctx, proc, ""))
	assert.Len(t, proc.got, 1)
}

func TestHandleMessageClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{name: "model timeout retries", err: &generation.StageError{Stage: generation.StageModel, Code: generation.CodeUpstreamModelTimeout, Err: context.DeadlineExceeded}},
		{name: "persistence retries", err: &generation.StageError{Stage: generation.StageLedger, Code: generation.CodePersistenceFailed, Err: errors.New("db")}},
		{name: "validation is permanent", err: &generation.StageError{Stage: generation.StageValidate, Code: generation.CodeValidationFailed, Err: errors.New("bad")}, permanent: true},
		{name: "render is permanent", err: &generation.StageError{Stage: generation.StageRender, Code: generation.CodeRenderFailed, Err: errors.New("pdf")}, permanent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleMessage(context.Background(), &fakeProcessor{err: tt.err}, paidBody(t))
			var procErr ErrProcess
			require.ErrorAs(t, err, &procErr)
			assert.Equal(t, "cs_1", procErr.SessionID)
			assert.Equal(t, "req-1", procErr.RequestID)
			assert.Equal(t, tt.permanent, procErr.Permanent)
			assert.Equal(t, tt.permanent, Unrecoverable(err))
		})
	}
}

func TestHandleMessageWithoutProcessor(t *testing.T) {
	assert.Error(t, HandleMessage(context.Background(), nil, paidBody(t)))
}
