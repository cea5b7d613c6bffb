package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// sesEmailSender sends emails through Amazon SES.
type sesEmailSender struct {
	client sesAPI
	from   string
	log    *slog.Logger
}

// NewSESEmailSender loads the default AWS credential chain for region and returns an
// SES-backed EmailSender.
func NewSESEmailSender(ctx context.Context, region, from string, log *slog.Logger) (EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &sesEmailSender{client: ses.NewFromConfig(cfg), from: from, log: log}, nil
}

func (s *sesEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	body := &types.Body{}
	if htmlBody != "" {
		body.Html = &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(htmlBody)}
	}
	if textBody != "" {
		body.Text = &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(textBody)}
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	s.log.Info("email sent via ses", "message_id", aws.ToString(out.MessageId))
	return nil
}
