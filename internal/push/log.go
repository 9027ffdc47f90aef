package push

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender only logs messages. Used when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	id := "log-" + uuid.NewString()
	s.logger.Info("push (log only)",
		zap.String("message_id", id),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return id, nil
}
