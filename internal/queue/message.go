package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// KindPaidGeneration asks a worker to run a payment-verified generation.
	KindPaidGeneration = "paid_generation"
	// CurrentVersion is the message layout version producers write.
	CurrentVersion = 1
)

// ErrInvalidMessage wraps schema violations.
var ErrInvalidMessage = errors.New("invalid queue message")

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind           string          `json:"kind"`
	Version        int             `json:"version"`
	RequestID      string          `json:"requestId,omitempty"`
	EnqueuedAt     string          `json:"enqueuedAt"`
	PaidGeneration *PaidGeneration `json:"paidGeneration,omitempty"`
}

// PaidGeneration is a checkout that has been paid for. AmountPaid is in
// cents.
type PaidGeneration struct {
	SessionID      string `json:"sessionId"`
	Email          string `json:"email"`
	TemplateID     string `json:"templateId"`
	ResumeContent  string `json:"resumeContent"`
	JobDescription string `json:"jobDescription"`
	FileName       string `json:"fileName"`
	AmountPaid     int64  `json:"amountPaid"`
}

const messageSchema = `{
  "type": "object",
  "required": ["kind", "version", "enqueuedAt"],
  "properties": {
    "kind": {"type": "string", "enum": ["paid_generation"]},
    "version": {"type": "integer", "minimum": 1},
    "requestId": {"type": "string"},
    "enqueuedAt": {"type": "string", "minLength": 1},
    "paidGeneration": {
      "type": "object",
      "required": ["sessionId", "email", "templateId", "resumeContent", "jobDescription"],
      "properties": {
        "sessionId": {"type": "string", "minLength": 1},
        "email": {"type": "string", "minLength": 3},
        "templateId": {"type": "string", "minLength": 1},
        "resumeContent": {"type": "string", "minLength": 1},
        "jobDescription": {"type": "string", "minLength": 1},
        "fileName": {"type": "string"},
        "amountPaid": {"type": "integer", "minimum": 0}
      }
    }
  },
  "if": {"properties": {"kind": {"const": "paid_generation"}}},
  "then": {"required": ["paidGeneration"]}
}`

var schemaLoader = gojsonschema.NewStringLoader(messageSchema)

// Validate checks payload against the message schema.
func Validate(payload []byte) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidMessage, strings.Join(msgs, "; "))
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeMessage validates and parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	if err := Validate(payload); err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
