package userbot

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain/model"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

// maxMessageRunes is Telegram's per-message text limit.
const maxMessageRunes = 4096

// ResultSender delivers a finished job's payload to the requester.
type ResultSender struct {
	sink adapter.DeliverySink
	log  *zerolog.Logger
}

func NewResultSender(sink adapter.DeliverySink, log *zerolog.Logger) *ResultSender {
	return &ResultSender{sink: sink, log: log}
}

// Deliver pushes the outcome to the user: the summary in as many
// messages as it takes, then the participants file if one was produced.
// The file is removed after a successful send; it has served its
// purpose and the sweeper would only reap it later.
func (s *ResultSender) Deliver(ctx context.Context, res *model.JobResult) {
	if res.Status == model.ResultFailure {
		text := "❌ Summarization failed."
		if res.Error != "" {
			text = fmt.Sprintf("❌ Summarization failed:\n%s", res.Error)
		}
		if err := s.sink.SendText(ctx, res.UserID, text); err != nil {
			s.log.Error().Err(err).Int64("user_id", res.UserID).Msg("failure notice send failed")
		}
		return
	}

	for _, chunk := range chunkRunes(res.Summary, maxMessageRunes) {
		if err := s.sink.SendText(ctx, res.UserID, chunk); err != nil {
			s.log.Error().Err(err).Int64("user_id", res.UserID).Msg("summary send failed")
			return
		}
	}

	if res.ParticipantsFile == "" {
		return
	}
	if err := s.sink.SendFile(ctx, res.UserID, res.ParticipantsFile, "Chat participants"); err != nil {
		s.log.Error().Err(err).Str("path", res.ParticipantsFile).Msg("participants file send failed")
		return
	}
	if err := os.Remove(res.ParticipantsFile); err != nil {
		s.log.Warn().Err(err).Str("path", res.ParticipantsFile).Msg("participants file cleanup failed")
	}
}

// chunkRunes splits text into rune-safe pieces of at most n runes.
func chunkRunes(text string, n int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
