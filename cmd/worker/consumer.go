package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/workerproc"
)

const (
	receiveBatch = 10
	receiveWait  = 20
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer long-polls the generation queue and hands each message to proc,
// running at most slots messages at once.
type consumer struct {
	client     sqsAPI
	queueURL   string
	proc       workerproc.Processor
	slots      int
	visibility time.Duration
}

// run polls until ctx is cancelled, then waits up to grace for in-flight
// messages. It reports whether every in-flight message finished in time.
func (c *consumer) run(ctx context.Context, grace time.Duration) bool {
	sem := make(chan struct{}, max(1, c.slots))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue_url":   c.queueURL,
		"concurrency": cap(sem),
		"visibility":  c.visibility.String(),
	})

	for ctx.Err() == nil {
		msgs, err := c.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, msg := range msgs {
			select {
			case <-ctx.Done():
				// Unstarted messages reappear after the visibility timeout.
			case sem <- struct{}{}:
				metrics.IncWorkerMessage("received")
				wg.Add(1)
				go func(m sqstypes.Message) {
					defer wg.Done()
					defer func() { <-sem }()
					handleMessage(context.WithoutCancel(ctx), c.client, c.queueURL, c.proc, m)
				}(msg)
			}
		}
	}

	telemetry.Info("worker.draining", map[string]any{"grace": grace.String()})
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		telemetry.Warn("worker.drain_timeout", nil)
		return false
	}
}

func (c *consumer) receive(ctx context.Context) ([]sqstypes.Message, error) {
	in := &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(c.queueURL),
		MaxNumberOfMessages:         receiveBatch,
		WaitTimeSeconds:             receiveWait,
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameApproximateReceiveCount},
	}
	if secs := int32(c.visibility / time.Second); secs > 0 {
		in.VisibilityTimeout = secs
	}
	out, err := c.client.ReceiveMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// handleMessage processes one message. It is deleted on success and on
// failures a redelivery cannot fix; other failures are left for SQS to
// redeliver.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := messageFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		telemetry.Error(decodeEvent(err, fields), fields)
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			metrics.IncWorkerMessage("deleted_unrecoverable")
		}
		return
	}

	sessionID := ""
	if decoded.PaidGeneration != nil {
		sessionID = decoded.PaidGeneration.SessionID
	}
	fields := messageFields(msg, sessionID, decoded.RequestID)
	telemetry.Info("worker.generation.received", fields)

	err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), proc, body)
	switch {
	case err == nil:
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			telemetry.Info("worker.generation.completed", fields)
			metrics.IncWorkerMessage("completed")
		}
	case workerproc.Unrecoverable(err):
		fields["error"] = err.Error()
		addCode(fields, err)
		telemetry.Error("worker.generation.failed_permanent", fields)
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			metrics.IncWorkerMessage("deleted_unrecoverable")
		}
	default:
		fields["error"] = err.Error()
		addCode(fields, err)
		telemetry.Error("worker.generation.failed", fields)
		metrics.IncWorkerMessage("failed")
	}
}

func decodeEvent(err error, fields map[string]any) string {
	var missing workerproc.ErrMissingPayload
	switch {
	case errors.As(err, new(workerproc.ErrEmptyBody)):
		return "worker.generation.empty_body"
	case errors.As(err, &missing):
		if missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		return "worker.generation.missing_payload"
	default:
		fields["error"] = err.Error()
		return "worker.generation.decode_failed"
	}
}

func addCode(fields map[string]any, err error) {
	var procErr workerproc.ErrProcess
	if errors.As(err, &procErr) && procErr.Code != "" {
		fields["code"] = procErr.Code
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.generation.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.generation.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["delete_error"] = msg
	return out
}

func messageFields(msg sqstypes.Message, sessionID, requestID string) map[string]any {
	fields := map[string]any{
		"session_id":     sessionID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		return 0
	}
	return n
}
