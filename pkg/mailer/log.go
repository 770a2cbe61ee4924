package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogSender writes messages to the logger instead of delivering them. Used in development.
type LogSender struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send records and logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("email",
		zap.String("to", msg.To.Address),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// Sent returns a copy of every message accepted so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
