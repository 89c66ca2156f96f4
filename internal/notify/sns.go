// internal/notify/sns.go
package notify

import (
	"context"
	"regexp"
	"strings"

	"menubot/internal/common/aws"
	apperrors "menubot/internal/common/errors"
)

var htmlTagPattern = regexp.MustCompile(`</?[bi]>`)

// SNSSender delivers menus as SMS via AWS SNS. Recipients are phone
// numbers in E.164 form.
type SNSSender struct {
	client *aws.SNSClient
}

func NewSNSSender(client *aws.SNSClient) *SNSSender {
	return &SNSSender{client: client}
}

func (s *SNSSender) Send(ctx context.Context, recipient, menuHTML string) error {
	// SMS is plain text; strip the chat markup.
	body := strings.TrimSpace(htmlTagPattern.ReplaceAllString(menuHTML, ""))

	if _, err := s.client.PublishSMS(ctx, recipient, body); err != nil {
		return apperrors.NewNotificationSendFailedError(s.Channel(), err)
	}
	return nil
}

func (s *SNSSender) Channel() string { return "sns" }
