package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

var _ adapter.DeliverySink = (*NoopSink)(nil)

// NoopSink logs deliveries instead of sending them. Useful for local
// runs without a bot token.
type NoopSink struct {
	log *zerolog.Logger
}

func NewNoopSink(log *zerolog.Logger) *NoopSink {
	return &NoopSink{log: log}
}

func (s *NoopSink) SendText(ctx context.Context, userID int64, text string) error {
	s.log.Info().Int64("user_id", userID).Str("text", text).Msg("noop send")
	return nil
}

func (s *NoopSink) SendFile(ctx context.Context, userID int64, path, caption string) error {
	s.log.Info().Int64("user_id", userID).Str("path", path).Str("caption", caption).Msg("noop send file")
	return nil
}

func (s *NoopSink) EditMessage(ctx context.Context, userID int64, messageID int, text string) error {
	s.log.Info().Int64("user_id", userID).Int("message_id", messageID).Str("text", text).Msg("noop edit")
	return nil
}
