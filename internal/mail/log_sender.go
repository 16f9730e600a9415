package mail

import (
	"context"
	"sync"

	"resume-optimizer/internal/shared/telemetry"
)

// LogSender logs messages instead of sending them. It keeps the sent
// messages for local inspection.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewLogSender constructs a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send records msg.
func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()

	sizes := make([]int, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		sizes = append(sizes, len(a.Data))
	}
	telemetry.Info("mail.logged", map[string]any{
		"to":               msg.To,
		"subject":          msg.Subject,
		"html_bytes":       len(msg.HTML),
		"attachment_bytes": sizes,
	})
	return nil
}

// Sent returns a copy of the recorded messages.
func (l *LogSender) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.sent))
	copy(out, l.sent)
	return out
}

var _ Sender = (*LogSender)(nil)
