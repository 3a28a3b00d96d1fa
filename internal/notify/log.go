package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every message to the structured log. It never fails.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.With(zap.String("component", "notify"))}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("user_id", msg.UserID.String()),
		zap.String("rule_id", msg.RuleID.String()),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	}
	if msg.Recipient != "" {
		fields = append(fields, zap.String("recipient", msg.Recipient))
	}
	if msg.Kind == KindAlert {
		fields = append(fields, zap.String("severity", string(msg.Severity)))
		s.log.Warn("automation alert raised", fields...)
		return nil
	}
	s.log.Info("automation notification", fields...)
	return nil
}
