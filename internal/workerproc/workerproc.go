package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/queue"
)

// Processor fulfills paid generations taken off the queue.
type Processor interface {
	ProcessPaidGeneration(ctx context.Context, p queue.PaidGeneration) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a payload that is not valid JSON or fails the message
// schema.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingPayload indicates a message without a paid generation payload.
type ErrMissingPayload struct {
	Meta      MessageMeta
	Kind      string
	RequestID string
}

func (e ErrMissingPayload) Error() string { return "missing payload for kind " + e.Kind }

// ErrProcess indicates processing failed after successful parsing.
// Permanent failures will not succeed on redelivery.
type ErrProcess struct {
	SessionID string
	RequestID string
	Code      string
	Permanent bool
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process paid generation"
	}
	return "process paid generation: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message should be dropped
// instead of redelivered.
func Unrecoverable(err error) bool {
	var procErr ErrProcess
	if errors.As(err, &procErr) {
		return procErr.Permanent
	}
	return err != nil
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Kind == queue.KindPaidGeneration && msg.PaidGeneration == nil {
		return msg, meta, ErrMissingPayload{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	if proc == nil {
		return errors.New("paid generation processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}
	if msg.PaidGeneration == nil {
		return ErrMissingPayload{Meta: ComputeMeta(body), Kind: msg.Kind, RequestID: msg.RequestID}
	}

	p := *msg.PaidGeneration
	ctxWithRequest := generation.WithRequestID(ctx, msg.RequestID)
	if err := proc.ProcessPaidGeneration(ctxWithRequest, p); err != nil {
		code := generation.CodeOf(err)
		return ErrProcess{
			SessionID: p.SessionID,
			RequestID: msg.RequestID,
			Code:      code,
			Permanent: permanentCode(code),
			Err:       err,
		}
	}
	return nil
}

// Validation and render failures repeat on every attempt. Upstream and
// persistence failures are worth a redelivery.
func permanentCode(code string) bool {
	switch code {
	case generation.CodeValidationFailed, generation.CodeRenderFailed:
		return true
	}
	return false
}
