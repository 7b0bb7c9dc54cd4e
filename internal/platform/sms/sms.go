// Package sms holds the development SMS sender. Real transport is wired by
// the operator; this one writes to the log.
package sms

import (
	"context"
	"log/slog"
)

// LogSender logs outgoing messages with the phone number masked.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	s.logger.InfoContext(ctx, "sms dispatched",
		"phone", MaskPhone(phone),
		"message", message,
	)
	return nil
}

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 {
			masked[i] = '*'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
