package telegram

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

var _ adapter.ChatClient = (*ChatClient)(nil)

// ChatClient is the worker-side read adapter. Participant data comes
// straight from the Bot API; message history comes from the per-chat
// dump files the MTProto exporter maintains under historyDir
// (<chat_id>.jsonl, one message object per line, oldest first), since
// the Bot API exposes no history backfill.
type ChatClient struct {
	api        *tgbotapi.BotAPI
	historyDir string
	log        *zerolog.Logger
}

func NewChatClient(api *tgbotapi.BotAPI, historyDir string, log *zerolog.Logger) *ChatClient {
	return &ChatClient{api: api, historyDir: historyDir, log: log}
}

func (c *ChatClient) Connect(ctx context.Context) error {
	if _, err := c.api.GetMe(); err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}
	return nil
}

func (c *ChatClient) IsAuthorized(ctx context.Context) (bool, error) {
	if _, err := c.api.GetMe(); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *ChatClient) IterMessages(ctx context.Context, chatID int64) (adapter.MessageIter, error) {
	path := filepath.Join(c.historyDir, fmt.Sprintf("%d.jsonl", chatID))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no history dump for chat %d: %w", chatID, domain.ErrNotFound)
		}
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &dumpIter{f: f, sc: sc, log: c.log}, nil
}

func (c *ChatClient) HasParticipants(ctx context.Context, chatID int64) (bool, error) {
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return false, err
	}
	return chat.IsGroup() || chat.IsSuperGroup(), nil
}

// Participants lists what the Bot API will give a non-admin bot: the
// chat's administrators. Full member enumeration needs MTProto and is
// out of this adapter's reach.
func (c *ChatClient) Participants(ctx context.Context, chatID int64) ([]adapter.Participant, error) {
	admins, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}
	out := make([]adapter.Participant, 0, len(admins))
	for _, m := range admins {
		if m.User == nil {
			continue
		}
		out = append(out, adapter.Participant{
			ID:        m.User.ID,
			FirstName: m.User.FirstName,
			LastName:  m.User.LastName,
			Username:  m.User.UserName,
		})
	}
	return out, nil
}

func (c *ChatClient) Close() error { return nil }

// dumpLine mirrors the exporter's line format. flood_wait lines are
// injected by the exporter when Telegram throttled it mid-dump, so the
// reader honors the same pacing the platform demanded.
type dumpLine struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	FloodWait int    `json:"flood_wait,omitempty"`
}

type dumpIter struct {
	f   *os.File
	sc  *bufio.Scanner
	log *zerolog.Logger

	// pending holds a decoded message whose delivery was preempted by a
	// flood_wait marker on the same line; Next re-serves it after the
	// caller has waited.
	pending *adapter.ChatMessage
}

func (it *dumpIter) Next(ctx context.Context) (*adapter.ChatMessage, error) {
	if it.pending != nil {
		msg := it.pending
		it.pending = nil
		return msg, nil
	}
	for it.sc.Scan() {
		line := it.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var dl dumpLine
		if err := json.Unmarshal(line, &dl); err != nil {
			it.log.Warn().Err(err).Msg("skipping malformed history line")
			continue
		}
		msg := &adapter.ChatMessage{ID: dl.ID, Text: dl.Text}
		if dl.FloodWait > 0 {
			it.pending = msg
			return nil, &domain.FloodWaitError{Seconds: dl.FloodWait}
		}
		return msg, nil
	}
	if err := it.sc.Err(); err != nil {
		_ = it.f.Close()
		return nil, err
	}
	_ = it.f.Close()
	return nil, nil
}
