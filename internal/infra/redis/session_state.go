package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telegram-chat-summarizer/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Markers expire on their own: a user who walks away leaves nothing
// behind, and a stalled job stops editing a stale message.
const sessionStateTTL = 5 * time.Minute

var _ repository.SessionState = (*SessionState)(nil)

// SessionState keeps the ephemeral per-user markers. Reads are
// best-effort: a store hiccup degrades to "no pending state" rather
// than failing the caller.
type SessionState struct {
	client Client
	log    *zerolog.Logger
}

func NewSessionState(client Client, log *zerolog.Logger) *SessionState {
	return &SessionState{client: client, log: log}
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("user:%d:state", userID)
}

func statusMessageKey(userID, chatID int64) string {
	return fmt.Sprintf("user:%d:status:%d", userID, chatID)
}

func (s *SessionState) SetPendingPrompt(ctx context.Context, userID int64, requestID string) error {
	return s.client.SetEx(ctx, pendingKey(userID), requestID, sessionStateTTL)
}

func (s *SessionState) PendingPrompt(ctx context.Context, userID int64) string {
	v, err := s.client.Get(ctx, pendingKey(userID))
	if err != nil {
		if !errors.Is(err, ErrNil) {
			s.log.Error().Err(err).Int64("user_id", userID).Msg("pending prompt read failed")
		}
		return ""
	}
	return v
}

func (s *SessionState) ClearPendingPrompt(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, pendingKey(userID))
}

func (s *SessionState) SetStatusMessage(ctx context.Context, userID, chatID int64, messageID int) error {
	return s.client.SetEx(ctx, statusMessageKey(userID, chatID), strconv.Itoa(messageID), sessionStateTTL)
}

func (s *SessionState) StatusMessage(ctx context.Context, userID, chatID int64) int {
	v, err := s.client.Get(ctx, statusMessageKey(userID, chatID))
	if err != nil {
		if !errors.Is(err, ErrNil) {
			s.log.Error().Err(err).Int64("user_id", userID).Int64("chat_id", chatID).Msg("status message read failed")
		}
		return 0
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return id
}
