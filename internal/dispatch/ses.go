package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/campaign-tracker/internal/config"
)

// SESMailer sends through the AWS SES v2 API.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

// NewSESMailer creates an SES-backed mailer. Static credentials from the
// config are used when present, otherwise the default AWS credential chain.
func NewSESMailer(ctx context.Context, cfg appconfig.MailerConfig) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SES.Region),
	}
	if cfg.SES.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SES.AccessKey, cfg.SES.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESMailer{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send delivers one message via SES SendEmail.
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody)},
					Text: &types.Content{Data: aws.String(msg.TextBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	return nil
}
