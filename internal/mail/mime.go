package mail

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// BuildRaw renders msg as a multipart/mixed RFC 5322 message: the HTML body
// first, then one base64 part per attachment.
func BuildRaw(from string, msg Message, now time.Time) ([]byte, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8), gomail.WithEncoding(gomail.EncodingQP))
	if err := m.From(from); err != nil {
		return nil, errors.Join(ErrInvalidMessage, fmt.Errorf("from: %w", err))
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Join(ErrInvalidMessage, fmt.Errorf("to: %w", err))
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now.UTC())
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		var opts []gomail.FileOption
		if a.ContentType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.FileName, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.FileName, err)
		}
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}
	return buf.Bytes(), nil
}
