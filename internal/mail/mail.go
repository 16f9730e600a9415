// Package mail delivers generated resumes and failure notices by email.
package mail

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidMessage is returned for messages that can never be delivered.
var ErrInvalidMessage = errors.New("invalid email message")

// Attachment is a file attached to a message.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is an outbound email with an HTML body.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("recipient is required"))
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return errors.Join(ErrInvalidMessage, errors.New("header contains line break"))
	}
	return nil
}
