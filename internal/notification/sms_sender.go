package notification

import (
	"context"
	"log/slog"
)

// logSMSSender stands in for an SMS gateway: it only logs the message.
type logSMSSender struct {
	log           *slog.Logger
	revealContent bool
}

// NewLogSMSSender returns an SMSSender that logs instead of delivering. When revealContent
// is true the message body is logged too, which makes local OTP testing possible; never
// enable it in production.
func NewLogSMSSender(log *slog.Logger, revealContent bool) SMSSender {
	return &logSMSSender{log: log, revealContent: revealContent}
}

func (s *logSMSSender) Send(_ context.Context, to, message string) error {
	if s.revealContent {
		s.log.Info("DEV SMS: message not delivered", "to", to, "message", message)
		return nil
	}
	s.log.Info("DEV SMS: message not delivered", "to", maskPhone(to), "length", len(message))
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}
