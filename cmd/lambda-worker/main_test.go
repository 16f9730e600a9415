package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/queue"
)

type stubProcessor struct {
	errs map[string]error
}

func (s stubProcessor) ProcessPaidGeneration(ctx context.Context, p queue.PaidGeneration) error {
	return s.errs[p.SessionID]
}

func record(t *testing.T, id, sessionID string) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		Kind:       queue.KindPaidGeneration,
		Version:    queue.CurrentVersion,
		EnqueuedAt: "2026-02-01T00:00:00Z",
		PaidGeneration: &queue.PaidGeneration{
			SessionID:      sessionID,
			Email:          "jane@x.com",
			TemplateID:     "executive",
			ResumeContent:  "resume",
			JobDescription: "jd",
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessRecordsReportsOnlyRetryableFailures(t *testing.T) {
	proc := stubProcessor{errs: map[string]error{
		"cs_retry": &generation.StageError{Stage: generation.StageEmail, Code: generation.CodeUpstreamEmailFailed, Err: errors.New("ses")},
		"cs_bad":   &generation.StageError{Stage: generation.StageValidate, Code: generation.CodeValidationFailed, Err: errors.New("invalid")},
	}}
	records := []events.SQSMessage{
		record(t, "1", "cs_ok"),
		record(t, "2", "cs_retry"),
		record(t, "3", "cs_bad"),
		{MessageId: "4", Body: "not json"},
	}

	failures := processRecords(context.Background(), proc, records)

	if len(failures) != 1 || failures[0].ItemIdentifier != "2" {
		t.Fatalf("expected only record 2 to be retried, got %+v", failures)
	}
}

func TestProcessRecordsDefersWhenDeadlineIsNear(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	failures := processRecords(ctx, stubProcessor{}, []events.SQSMessage{
		record(t, "1", "cs_a"),
		record(t, "2", "cs_b"),
	})

	if len(failures) != 2 {
		t.Fatalf("expected both records deferred, got %+v", failures)
	}
}
