// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"menubot/internal/common/logger"
)

// SNSAPI is the subset of the SNS client used by the relay.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient wraps the AWS SNS client for direct SMS delivery.
type SNSClient struct {
	client   SNSAPI
	senderID string
	logger   logger.Logger
}

// NewSNSClient creates an SNS client using the default AWS credential chain.
func NewSNSClient(ctx context.Context, region, senderID string, log logger.Logger) (*SNSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SNSClient{
		client:   sns.NewFromConfig(cfg),
		senderID: senderID,
		logger:   log,
	}, nil
}

// NewSNSClientWithAPI creates an SNSClient with a provided API implementation.
func NewSNSClientWithAPI(api SNSAPI, senderID string, log logger.Logger) *SNSClient {
	return &SNSClient{client: api, senderID: senderID, logger: log}
}

// PublishSMS sends a text message directly to a phone number.
func (c *SNSClient) PublishSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: &phoneNumber,
		Message:     &message,
	}

	if c.senderID != "" {
		senderIDKey := "AWS.SNS.SMS.SenderID"
		dataType := "String"
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			senderIDKey: {
				DataType:    &dataType,
				StringValue: &c.senderID,
			},
		}
	}

	out, err := c.client.Publish(ctx, input)
	if err != nil {
		c.logger.Error("SNS publish failed", map[string]interface{}{
			"phone_number": maskPhone(phoneNumber),
			"error":        err.Error(),
		})
		return "", fmt.Errorf("sns publish: %w", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}

	c.logger.Debug("SNS message published", map[string]interface{}{
		"phone_number": maskPhone(phoneNumber),
		"message_id":   messageID,
	})

	return messageID, nil
}

// maskPhone keeps only the last 4 digits for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
