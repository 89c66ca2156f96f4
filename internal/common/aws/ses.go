// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"menubot/internal/common/logger"
)

// SESAPI is the subset of the SES client used by the relay.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient wraps the AWS SES client for email delivery.
type SESClient struct {
	client SESAPI
	from   string
	logger logger.Logger
}

// NewSESClient creates an SES client using the default AWS credential chain.
func NewSESClient(ctx context.Context, region, fromEmail string, log logger.Logger) (*SESClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESClient{
		client: ses.NewFromConfig(cfg),
		from:   fromEmail,
		logger: log,
	}, nil
}

// NewSESClientWithAPI creates an SESClient with a provided API implementation.
func NewSESClientWithAPI(api SESAPI, fromEmail string, log logger.Logger) *SESClient {
	return &SESClient{client: api, from: fromEmail, logger: log}
}

// SendHTMLEmail sends an HTML email to a single recipient.
func (c *SESClient) SendHTMLEmail(ctx context.Context, to, subject, htmlBody string) (string, error) {
	charset := "UTF-8"

	input := &ses.SendEmailInput{
		Source: &c.from,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: &charset,
				Data:    &subject,
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: &charset,
					Data:    &htmlBody,
				},
			},
		},
	}

	out, err := c.client.SendEmail(ctx, input)
	if err != nil {
		c.logger.Error("SES send failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return "", fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}

	c.logger.Debug("SES email sent", map[string]interface{}{
		"to":         to,
		"message_id": messageID,
	})

	return messageID, nil
}
