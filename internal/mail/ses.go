package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"resume-optimizer/internal/shared/telemetry"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends raw MIME messages through Amazon SES v2.
type SESSender struct {
	client sesAPI
	from   string
	now    func() time.Time
}

// NewSESSender loads AWS config for region. SDK retries are disabled;
// Retrying owns the backoff.
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		o.RetryMaxAttempts = 1
	})
	return &SESSender{client: client, from: from, now: time.Now}, nil
}

// Send delivers msg.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	raw, err := BuildRaw(s.from, msg, s.now())
	if err != nil {
		return err
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	telemetry.Info("mail.sent", map[string]any{
		"to":          msg.To,
		"subject":     msg.Subject,
		"message_id":  aws.ToString(out.MessageId),
		"attachments": len(msg.Attachments),
	})
	return nil
}

var _ Sender = (*SESSender)(nil)
