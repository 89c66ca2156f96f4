// internal/notify/notify.go

// Package notify delivers scheduled menu notifications to subscribers over
// a configurable outbound channel.
package notify

import (
	"context"

	"menubot/internal/common/logger"
)

// Sender pushes one rendered menu to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient, menuHTML string) error
	Channel() string
}

// LogSender writes notifications to the log instead of an external
// channel. Default for local development.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(ctx context.Context, recipient, menuHTML string) error {
	s.logger.Info("notification", map[string]interface{}{
		"recipient": recipient,
		"menu":      menuHTML,
	})
	return nil
}

func (s *LogSender) Channel() string { return "log" }
