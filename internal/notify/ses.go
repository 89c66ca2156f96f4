// internal/notify/ses.go
package notify

import (
	"context"
	"strings"

	"menubot/internal/common/aws"
	apperrors "menubot/internal/common/errors"
)

// SESSender delivers menus as HTML email via AWS SES. Recipients are
// email addresses.
type SESSender struct {
	client  *aws.SESClient
	subject string
}

func NewSESSender(client *aws.SESClient, subject string) *SESSender {
	return &SESSender{client: client, subject: subject}
}

func (s *SESSender) Send(ctx context.Context, recipient, menuHTML string) error {
	// Chat markup is already HTML; only newlines need converting.
	body := strings.ReplaceAll(menuHTML, "\n", "<br>\n")

	if _, err := s.client.SendHTMLEmail(ctx, recipient, s.subject, body); err != nil {
		return apperrors.NewNotificationSendFailedError(s.Channel(), err)
	}
	return nil
}

func (s *SESSender) Channel() string { return "ses" }
