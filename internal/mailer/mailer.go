// Package mailer renders and sends expense summary and failure emails.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Sender delivers an HTML email to a list of recipients.
// This abstraction enables mocking in pipeline tests.
type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// SESSender sends email through Amazon SES v2.
type SESSender struct {
	client *sesv2.Client
	from   string
}

var _ Sender = (*SESSender)(nil)

// NewSESSender builds a sender with the given verified from address.
func NewSESSender(ctx context.Context, from string) (*SESSender, error) {
	if from == "" {
		return nil, fmt.Errorf("mailer: sender address is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("mailer: load AWS config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg), from: from}, nil
}

// Send delivers an HTML email to the given recipients.
func (s *SESSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &sestypes.Destination{
			ToAddresses: to,
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("mailer: send email: %w", err)
	}
	return nil
}
