package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"resume-optimizer/internal/bootstrap"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/workerproc"
)

// minRemaining is the invocation time a record needs before it is started.
// Records that cannot start are handed back to SQS untouched.
const minRemaining = 30 * time.Second

var (
	loadOnce sync.Once
	loadErr  error
	proc     workerproc.Processor
)

func load() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	app, err := bootstrap.Build(cfg)
	if err != nil {
		loadErr = err
		return
	}
	proc = app.Payments
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{
			"error":   loadErr.Error(),
			"records": len(event.Records),
		})
		return events.SQSEventResponse{BatchItemFailures: retryAll(event.Records)}, loadErr
	}
	return events.SQSEventResponse{BatchItemFailures: processRecords(ctx, proc, event.Records)}, nil
}

// processRecords returns the records SQS should redeliver. Unrecoverable
// messages are acknowledged so they do not loop until the DLQ.
func processRecords(ctx context.Context, p workerproc.Processor, records []events.SQSMessage) []events.SQSBatchItemFailure {
	var failures []events.SQSBatchItemFailure
	for i, record := range records {
		if !enoughTime(ctx) {
			telemetry.Warn("worker.deadline_near", map[string]any{"deferred": len(records) - i})
			return append(failures, retryAll(records[i:])...)
		}
		metrics.IncWorkerMessage("received")
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"receive_count":  record.Attributes["ApproximateReceiveCount"],
		}

		err := workerproc.HandleMessage(ctx, p, record.Body)
		if err == nil {
			metrics.IncWorkerMessage("completed")
			continue
		}
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.generation.failed_permanent", fields)
			metrics.IncWorkerMessage("deleted_unrecoverable")
			continue
		}
		telemetry.Error("worker.generation.failed", fields)
		metrics.IncWorkerMessage("failed")
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func enoughTime(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) >= minRemaining
}

func retryAll(records []events.SQSMessage) []events.SQSBatchItemFailure {
	out := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, r := range records {
		out = append(out, events.SQSBatchItemFailure{ItemIdentifier: r.MessageId})
	}
	return out
}

func main() {
	lambda.Start(handler)
}
