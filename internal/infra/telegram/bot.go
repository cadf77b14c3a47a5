package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

var _ adapter.DeliverySink = (*Bot)(nil)

// MessageHandler processes one incoming Telegram message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *tgbotapi.Message)
}

// Bot wraps the Bot API client: it polls updates with a small worker
// pool and implements the delivery sink the relay writes through.
type Bot struct {
	api     *tgbotapi.BotAPI
	workers int
	log     *zerolog.Logger

	cancelPolling context.CancelFunc
}

func NewBot(token string, workers int, log *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 5
	}
	return &Bot{api: api, workers: workers, log: log}, nil
}

// API exposes the underlying client for adapters that share the
// connection, like the worker's chat client.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// Username returns the bot's own @name, useful for logs and greetings.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// StartPolling consumes updates until ctx is canceled, fanning them out
// to the handler across the configured number of workers.
func (b *Bot) StartPolling(ctx context.Context, handler MessageHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	work := make(chan tgbotapi.Update, 100)
	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case update, ok := <-work:
					if !ok {
						return
					}
					if update.Message != nil {
						handler.HandleMessage(ctx, update.Message)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for {
			select {
			case update := <-updates:
				select {
				case work <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	b.api.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling ends the polling loop started by StartPolling.
func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) SendText(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendFile(ctx context.Context, userID int64, path, caption string) error {
	doc := tgbotapi.NewDocument(userID, tgbotapi.FilePath(path))
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

// EditMessage rewrites a previously sent message in place. Telegram
// rejects edits that would not change the text; that rejection is not
// an error for our purposes.
func (b *Bot) EditMessage(ctx context.Context, userID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	}
	return nil
}

// ResolveChat turns a user-supplied chat reference into a chat id.
// Accepted forms: a numeric id, an @username, or a t.me link.
func (b *Bot) ResolveChat(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if rest, ok := strings.CutPrefix(ref, prefix); ok {
			ref = "@" + rest
			break
		}
	}
	if !strings.HasPrefix(ref, "@") {
		return 0, fmt.Errorf("unrecognized chat reference %q", ref)
	}
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: ref},
	})
	if err != nil {
		return 0, fmt.Errorf("resolve chat %s: %w", ref, err)
	}
	return chat.ID, nil
}

// SendStatusMessage sends the initial status message and returns its id
// so later edits can target it.
func (b *Bot) SendStatusMessage(ctx context.Context, userID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(userID, text)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}
